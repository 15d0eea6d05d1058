package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "model server base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid model server base URL",
		})
	}

	if c.LLM.StrongModel == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.strong_model",
			Message: "strong model identifier is required",
		})
	}

	if c.LLM.LightModel == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.light_model",
			Message: "light model identifier is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature != nil && (*c.LLM.Temperature < 0 || *c.LLM.Temperature > 2) {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.TopP <= 0 || c.LLM.TopP > 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.top_p",
			Message: "top_p must be in (0, 1]",
		})
	}

	if c.LLM.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Fetcher.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Fetcher.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	if c.Raster.MaxDim < 64 {
		errors = append(errors, ValidationError{
			Field:   "raster.max_dim",
			Message: "max_dim must be at least 64",
		})
	}

	if c.Raster.JPEGQuality < 1 || c.Raster.JPEGQuality > 100 {
		errors = append(errors, ValidationError{
			Field:   "raster.jpeg_quality",
			Message: "jpeg_quality must be between 1 and 100",
		})
	}

	if c.Exec.Enabled && c.Exec.Interpreter == "" {
		errors = append(errors, ValidationError{
			Field:   "exec.interpreter",
			Message: "interpreter is required when exec is enabled",
		})
	}

	if c.ImageGen.Endpoint != "" {
		if _, err := url.Parse(c.ImageGen.Endpoint); err != nil {
			errors = append(errors, ValidationError{
				Field:   "imagegen.endpoint",
				Message: "invalid image generation endpoint",
			})
		}
	}

	return errors
}
