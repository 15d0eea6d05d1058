package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/docuplot/docuplot/internal/models"
	"github.com/docuplot/docuplot/internal/types"
)

// Engine talks to the hosted language-model endpoint through two model
// handles: the strong model (planning and synthesis) and the light model
// (per-document extraction).
type Engine struct {
	config types.EngineConfig
	strong llms.Model
	light  llms.Model
}

// NewWithConfig creates an Engine backed by an Ollama-compatible server.
func NewWithConfig(config types.EngineConfig) (*Engine, error) {
	applyDefaults(&config)

	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	}

	// Generous fixed timeout on the transport client; a hung remote call is
	// bounded here, not by any pipeline-level policy.
	httpClient := &http.Client{Timeout: config.Timeout}

	strong, err := ollama.New(
		ollama.WithModel(config.StrongModel),
		ollama.WithServerURL(config.BaseURL),
		ollama.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize strong model: %w", err)
	}

	light, err := ollama.New(
		ollama.WithModel(config.LightModel),
		ollama.WithServerURL(config.BaseURL),
		ollama.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize light model: %w", err)
	}

	return &Engine{config: config, strong: strong, light: light}, nil
}

// NewWithModels wires explicit model implementations. Used by callers that
// already hold llms.Model values, and by tests.
func NewWithModels(config types.EngineConfig, strong, light llms.Model) *Engine {
	applyDefaults(&config)
	return &Engine{config: config, strong: strong, light: light}
}

func applyDefaults(config *types.EngineConfig) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.StrongModel == "" {
		config.StrongModel = "qwen2.5vl:32b"
	}
	if config.LightModel == "" {
		config.LightModel = "qwen2.5vl:7b"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	// Temperature is not defaulted here: zero is a valid setting (greedy
	// decoding) and must survive as configured.
	if config.TopP == 0 {
		config.TopP = 0.9
	}
	if config.TopK == 0 {
		config.TopK = 40
	}
	if config.Timeout == 0 {
		config.Timeout = 300 * time.Second
	}
}

// Plan asks the strong model for a reusable extraction instruction. The
// question is validated before any network call is made.
func (e *Engine) Plan(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question must be a non-empty string")
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, plannerSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildPlannerPrompt(question)),
	}

	resp, err := e.strong.GenerateContent(ctx, content, e.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("planner call failed: %w", err)
	}
	return firstChoice(resp)
}

// Extract sends one document's pages plus the shared extraction prompt to the
// light model as a single multimodal request.
func (e *Engine) Extract(ctx context.Context, prompt string, pages []models.PageImage) (string, error) {
	if len(pages) == 0 {
		return "", fmt.Errorf("no pages to extract from")
	}

	parts := make([]llms.ContentPart, 0, len(pages)+1)
	parts = append(parts, llms.TextPart(prompt))
	for _, page := range pages {
		parts = append(parts, llms.ImageURLPart(page.DataURL()))
	}

	content := []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	resp, err := e.light.GenerateContent(ctx, content, e.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("extraction call for %s failed: %w", pages[0].Label, err)
	}
	return firstChoice(resp)
}

// Synthesize asks the strong model for the final narrative plus a fenced
// chart-code block, given the combined per-document context.
func (e *Engine) Synthesize(ctx context.Context, question, combined string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, synthesisSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildSynthesisPrompt(question, combined)),
	}

	resp, err := e.strong.GenerateContent(ctx, content, e.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("synthesis call failed: %w", err)
	}
	return firstChoice(resp)
}

func (e *Engine) callOptions() []llms.CallOption {
	return []llms.CallOption{
		llms.WithMaxTokens(e.config.MaxTokens),
		llms.WithTemperature(e.config.Temperature),
		llms.WithTopP(e.config.TopP),
		llms.WithTopK(e.config.TopK),
	}
}

func firstChoice(resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty model response")
	}
	return resp.Choices[0].Content, nil
}
