package types

import (
	"context"
	"time"

	"github.com/docuplot/docuplot/internal/models"
)

// Core interfaces

// Fetcher retrieves remote documents into local storage. Fetches run
// independently; a failed fetch never aborts its siblings, and results come
// back in input order.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []models.FetchResult
}

// Rasterizer converts a fetched document into its pages, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc models.Document) ([]models.PageImage, error)
}

// Engine is the narrow contract against the language-model endpoint. Plan and
// Synthesize address the strong model, Extract the light one.
type Engine interface {
	Plan(ctx context.Context, question string) (string, error)
	Extract(ctx context.Context, prompt string, pages []models.PageImage) (string, error)
	Synthesize(ctx context.Context, question, combined string) (string, error)
}

// ScriptRunner is the capability boundary around model-generated chart code.
// Persist always writes the fragment as an artifact; Execute is only called
// when execution has been explicitly enabled.
type ScriptRunner interface {
	Persist(code string) (string, error)
	Execute(ctx context.Context, scriptPath string) (string, error)
	Enabled() bool
}

type FetcherConfig struct {
	Dir        string
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	OnProgress func(url string)
}

type RasterizerConfig struct {
	MaxDim      int
	JPEGQuality int
}

type EngineConfig struct {
	BaseURL     string
	StrongModel string
	LightModel  string
	MaxTokens   int
	Temperature float64 // passed through as given; 0 selects greedy decoding
	TopP        float64
	TopK        int
	Timeout     time.Duration // transport-level; there is no pipeline-level timeout
}
