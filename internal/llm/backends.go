package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Settings selects a provider and the model of each logical backend.
type Settings struct {
	Provider     string
	BaseURL      string
	APIKey       string
	FastModel    string
	ContentModel string
	ImageModel   string
	Referer      string
	Title        string
	// Timeout bounds each image request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// NewBackends builds the completion backends and, for OpenAI-compatible
// providers, the image client. Without an API key both return values are
// empty, which runs the pipeline in template mode.
func NewBackends(ctx context.Context, s Settings, log *zap.Logger) (Backends, *ImageClient, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(s.APIKey) == "" {
		log.Warn("no LLM API key configured; reports use the built-in template")
		return Backends{}, nil, nil
	}

	switch strings.ToLower(s.Provider) {
	case "", ProviderOpenAI:
		cfg := OpenAIConfig{BaseURL: s.BaseURL, APIKey: s.APIKey, Referer: s.Referer, Title: s.Title, Timeout: s.Timeout, Logger: log}
		fast, content, image := cfg, cfg, cfg
		fast.Model, content.Model, image.Model = s.FastModel, s.ContentModel, s.ImageModel
		return Backends{Fast: NewOpenAIClient(fast), Content: NewOpenAIClient(content)}, NewImageClient(image), nil
	case ProviderGemini:
		fast, err := NewGeminiClient(ctx, s.APIKey, s.BaseURL, s.FastModel, log)
		if err != nil {
			return Backends{}, nil, err
		}
		content, err := NewGeminiClient(ctx, s.APIKey, s.BaseURL, s.ContentModel, log)
		if err != nil {
			return Backends{}, nil, err
		}
		return Backends{Fast: fast, Content: content}, nil, nil
	default:
		return Backends{}, nil, fmt.Errorf("unknown LLM provider %q", s.Provider)
	}
}
