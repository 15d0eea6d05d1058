package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Parameter bounds recognized by the hosted image-generation endpoint.
const (
	MinImages = 1
	MaxImages = 5

	MinDim      = 320
	MaxDim      = 4096
	DimMultiple = 16
	MaxPixels   = 4_194_304

	MinCfgScale     = 1.1
	MaxCfgScale     = 10.0
	DefaultCfgScale = 6.5

	MaxSeed = 858_993_459

	QualityStandard = "standard"
	QualityPremium  = "premium"

	TaskTextToImage = "TEXT_IMAGE"
)

// GenerationConfig mirrors the endpoint's imageGenerationConfig object.
type GenerationConfig struct {
	NumberOfImages int     `json:"numberOfImages"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	CfgScale       float64 `json:"cfgScale"`
	Seed           int64   `json:"seed"`
	Quality        string  `json:"quality"`
}

// DefaultGenerationConfig returns a valid single-image configuration.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		NumberOfImages: 1,
		Width:          1024,
		Height:         1024,
		CfgScale:       DefaultCfgScale,
		Seed:           0,
		Quality:        QualityStandard,
	}
}

// Validate enforces every documented parameter bound before any network call.
func (c GenerationConfig) Validate() error {
	if c.NumberOfImages < MinImages || c.NumberOfImages > MaxImages {
		return fmt.Errorf("numberOfImages must be between %d and %d, got %d", MinImages, MaxImages, c.NumberOfImages)
	}
	if err := validateDim("width", c.Width); err != nil {
		return err
	}
	if err := validateDim("height", c.Height); err != nil {
		return err
	}
	if c.Width*4 < c.Height || c.Height*4 < c.Width {
		return fmt.Errorf("aspect ratio must be between 1:4 and 4:1, got %d:%d", c.Width, c.Height)
	}
	if c.Width*c.Height > MaxPixels {
		return fmt.Errorf("total pixels must not exceed %d, got %d", MaxPixels, c.Width*c.Height)
	}
	if c.CfgScale < MinCfgScale || c.CfgScale > MaxCfgScale {
		return fmt.Errorf("cfgScale must be between %g and %g, got %g", MinCfgScale, MaxCfgScale, c.CfgScale)
	}
	if c.Seed < 0 || c.Seed > MaxSeed {
		return fmt.Errorf("seed must be between 0 and %d, got %d", MaxSeed, c.Seed)
	}
	if c.Quality != QualityStandard && c.Quality != QualityPremium {
		return fmt.Errorf("quality must be %q or %q, got %q", QualityStandard, QualityPremium, c.Quality)
	}
	return nil
}

func validateDim(name string, dim int) error {
	if dim < MinDim || dim > MaxDim {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, MinDim, MaxDim, dim)
	}
	if dim%DimMultiple != 0 {
		return fmt.Errorf("%s must be a multiple of %d, got %d", name, DimMultiple, dim)
	}
	return nil
}

type textToImageParams struct {
	Text string `json:"text"`
}

type request struct {
	TaskType              string            `json:"taskType"`
	TextToImageParams     textToImageParams `json:"textToImageParams"`
	ImageGenerationConfig GenerationConfig  `json:"imageGenerationConfig"`
}

type response struct {
	Images []string `json:"images"`
	Error  string   `json:"error,omitempty"`
}

// Client is a narrow client for the image-generation endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate validates the configuration, posts the request and returns the
// decoded images.
func (c *Client) Generate(ctx context.Context, prompt string, cfg GenerationConfig) ([][]byte, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("image generation endpoint is not configured")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(request{
		TaskType:              TaskTextToImage,
		TextToImageParams:     textToImageParams{Text: prompt},
		ImageGenerationConfig: cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, string(b))
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("endpoint error: %s", parsed.Error)
	}
	if len(parsed.Images) == 0 {
		return nil, fmt.Errorf("endpoint returned no images")
	}

	images := make([][]byte, 0, len(parsed.Images))
	for i, enc := range parsed.Images {
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image %d: %w", i, err)
		}
		images = append(images, data)
	}
	return images, nil
}

// SaveImages writes decoded images into dir as <prefix>_<n>.png and returns
// the written paths. The directory is created if absent.
func SaveImages(dir, prefix string, images [][]byte) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	paths := make([]string, 0, len(images))
	for i, data := range images {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", prefix, i+1))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
