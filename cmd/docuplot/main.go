package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/docuplot/docuplot/internal/types"
	cfgPkg "github.com/docuplot/docuplot/pkg/config"
	"github.com/docuplot/docuplot/pkg/fetcher"
	"github.com/docuplot/docuplot/pkg/llm"
	"github.com/docuplot/docuplot/pkg/pipeline"
	"github.com/docuplot/docuplot/pkg/raster"
	"github.com/docuplot/docuplot/pkg/runner"
)

type Config struct {
	Question     string
	Docs         []string
	Downloads    string
	OutDir       string
	BaseURL      string
	StrongModel  string
	LightModel   string
	MaxTokens    int
	Temperature  float64
	TopP         float64
	TopK         int
	LLMTimeout   time.Duration
	MaxDim       int
	RateLimit    float64
	FetchTimeout time.Duration
	Exec         bool
	Interpreter  string
	Verbose      bool
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	_ = godotenv.Load()

	var config Config
	var configPath string
	var docs string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&config.Question, "question", "", "Question to answer over the documents")
	flag.StringVar(&docs, "docs", "", "Comma-separated list of document URLs")
	flag.StringVar(&config.Downloads, "downloads", "", "Directory for fetched documents")
	flag.StringVar(&config.OutDir, "out", "", "Directory for run artifacts")
	flag.StringVar(&config.BaseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Model server URL")
	flag.StringVar(&config.StrongModel, "strong-model", "", "Model used for planning and synthesis")
	flag.StringVar(&config.LightModel, "light-model", "", "Model used for per-document extraction")
	flag.IntVar(&config.MaxTokens, "max-tokens", 0, "Maximum tokens per model response")
	// -1 means "not set on the command line"; 0 is a real value (greedy decoding).
	flag.Float64Var(&config.Temperature, "temperature", -1, "Sampling temperature (0 for greedy decoding)")
	flag.IntVar(&config.MaxDim, "max-dim", 0, "Maximum page image dimension in pixels")
	flag.BoolVar(&config.Exec, "exec", false, "Execute the generated chart script (off by default)")
	flag.StringVar(&config.Interpreter, "interpreter", "", "Interpreter for the chart script")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	if docs != "" {
		for _, d := range strings.Split(docs, ",") {
			if d = strings.TrimSpace(d); d != "" {
				config.Docs = append(config.Docs, d)
			}
		}
	}

	// Load config file and fill in anything not set on the command line.
	if cfg, err := cfgPkg.LoadConfig(configPath); err == nil {
		if config.BaseURL == "" {
			config.BaseURL = cfg.LLM.BaseURL
		}
		if config.StrongModel == "" {
			config.StrongModel = cfg.LLM.StrongModel
		}
		if config.LightModel == "" {
			config.LightModel = cfg.LLM.LightModel
		}
		if config.Downloads == "" {
			config.Downloads = cfg.Fetcher.Dir
		}
		if config.OutDir == "" {
			config.OutDir = cfg.Output.Dir
		}
		if config.MaxDim == 0 {
			config.MaxDim = cfg.Raster.MaxDim
		}
		if config.Interpreter == "" {
			config.Interpreter = cfg.Exec.Interpreter
		}
		if !config.Exec {
			config.Exec = cfg.Exec.Enabled
		}
		if config.MaxTokens == 0 {
			config.MaxTokens = cfg.LLM.MaxTokens
		}
		if config.Temperature < 0 && cfg.LLM.Temperature != nil {
			config.Temperature = *cfg.LLM.Temperature
		}
		config.TopP = cfg.LLM.TopP
		config.TopK = cfg.LLM.TopK
		config.LLMTimeout = time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
		config.RateLimit = cfg.Fetcher.RateLimit
		config.FetchTimeout = time.Duration(cfg.Fetcher.TimeoutSeconds) * time.Second
	}
	if config.Temperature < 0 {
		config.Temperature = 0.3
	}

	return config
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(config Config) error {
	if strings.TrimSpace(config.Question) == "" {
		return fmt.Errorf("a -question is required")
	}
	if len(config.Docs) == 0 {
		return fmt.Errorf("at least one document URL is required via -docs")
	}

	level := zerolog.InfoLevel
	if config.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	runID := uuid.NewString()
	outDir := filepath.Join(config.OutDir, runID)

	fetchBar := getProgressBar(len(config.Docs), "Fetching documents...")
	f, err := fetcher.NewWithConfig(types.FetcherConfig{
		Dir:       config.Downloads,
		RateLimit: config.RateLimit,
		Timeout:   config.FetchTimeout,
		OnProgress: func(string) {
			fetchBar.Add(1)
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize fetcher: %v", err)
	}

	r := raster.NewWithConfig(types.RasterizerConfig{MaxDim: config.MaxDim})

	engine, err := llm.NewWithConfig(types.EngineConfig{
		BaseURL:     config.BaseURL,
		StrongModel: config.StrongModel,
		LightModel:  config.LightModel,
		MaxTokens:   config.MaxTokens,
		Temperature: config.Temperature,
		TopP:        config.TopP,
		TopK:        config.TopK,
		Timeout:     config.LLMTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize model engine: %v", err)
	}

	scriptRunner := runner.NewWithConfig(runner.Config{
		Enabled:     config.Exec,
		Interpreter: config.Interpreter,
		WorkDir:     outDir,
	}, logger)

	p := pipeline.New(f, r, engine, scriptRunner, logger)

	color.Blue("\nAnswering over %d documents\n", len(config.Docs))
	spinner := getSpinner("Running pipeline...")

	result, err := p.Run(context.Background(), runID, config.Question, config.Docs)
	spinner.Finish()
	fetchBar.Finish()
	if err != nil {
		return err
	}

	for _, failed := range result.Failed {
		color.Red("✗ %s: %v\n", failed.Document.SourceURL, failed.Err)
	}
	color.Green("\n✓ Extracted from %d documents\n", len(result.Documents))

	answer := color.New(color.FgCyan).PrintfFunc()
	answer("\n%s\n", result.Narrative)

	if result.ScriptPath != "" {
		color.Green("\n✓ Chart script written to %s\n", result.ScriptPath)
	}
	if result.ExecErr != nil {
		color.Red("Chart script failed: %v\n%s\n", result.ExecErr, result.ExecOutput)
	} else if result.ExecOutput != "" {
		fmt.Println(result.ExecOutput)
	}

	return nil
}
