package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	BaseURL     string `yaml:"base_url"`
	StrongModel string `yaml:"strong_model"`
	LightModel  string `yaml:"light_model"`
	MaxTokens   int    `yaml:"max_tokens"`
	// Pointer so an explicit 0 (greedy decoding) is distinguishable from an
	// absent key, which gets the default.
	Temperature    *float64 `yaml:"temperature"`
	TopP           float64  `yaml:"top_p"`
	TopK           int      `yaml:"top_k"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

type FetcherConfig struct {
	Dir            string  `yaml:"dir"`
	RateLimit      float64 `yaml:"rate_limit"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type RasterConfig struct {
	MaxDim      int `yaml:"max_dim"`
	JPEGQuality int `yaml:"jpeg_quality"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type ExecConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Interpreter    string `yaml:"interpreter"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ImageGenConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Fetcher  FetcherConfig  `yaml:"fetcher"`
	Raster   RasterConfig   `yaml:"raster"`
	Output   OutputConfig   `yaml:"output"`
	Exec     ExecConfig     `yaml:"exec"`
	ImageGen ImageGenConfig `yaml:"imagegen"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docuplot/config.yaml"),
			"/etc/docuplot/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.StrongModel == "" {
		config.LLM.StrongModel = "qwen2.5vl:32b"
	}
	if config.LLM.LightModel == "" {
		config.LLM.LightModel = "qwen2.5vl:7b"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == nil {
		temperature := 0.3
		config.LLM.Temperature = &temperature
	}
	if config.LLM.TopP == 0 {
		config.LLM.TopP = 0.9
	}
	if config.LLM.TopK == 0 {
		config.LLM.TopK = 40
	}
	if config.LLM.TimeoutSeconds == 0 {
		// Generous fixed transport timeout; there is no pipeline-level one.
		config.LLM.TimeoutSeconds = 300
	}

	if config.Fetcher.Dir == "" {
		config.Fetcher.Dir = "downloads"
	}
	if config.Fetcher.RateLimit == 0 {
		config.Fetcher.RateLimit = 2.0
	}
	if config.Fetcher.TimeoutSeconds == 0 {
		config.Fetcher.TimeoutSeconds = 120
	}

	if config.Raster.MaxDim == 0 {
		config.Raster.MaxDim = 1024
	}
	if config.Raster.JPEGQuality == 0 {
		config.Raster.JPEGQuality = 85
	}

	if config.Output.Dir == "" {
		config.Output.Dir = "out"
	}

	if config.Exec.Interpreter == "" {
		config.Exec.Interpreter = "python3"
	}
	if config.Exec.TimeoutSeconds == 0 {
		config.Exec.TimeoutSeconds = 60
	}

	if config.ImageGen.TimeoutSeconds == 0 {
		config.ImageGen.TimeoutSeconds = 120
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if endpoint := os.Getenv("IMAGEGEN_ENDPOINT"); endpoint != "" {
		config.ImageGen.Endpoint = endpoint
	}
	if key := os.Getenv("IMAGEGEN_API_KEY"); key != "" {
		config.ImageGen.APIKey = key
	}
}
