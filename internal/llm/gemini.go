package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient is a Completer backed by the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// NewGeminiClient connects to the Gemini API. baseURL may be empty.
func NewGeminiClient(ctx context.Context, apiKey, baseURL, model string, log *zap.Logger) (*GeminiClient, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model, log: log.With(zap.String("model", model))}, nil
}

// Complete sends prompt as a single user turn.
func (c *GeminiClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	opts = opts.withDefaults()
	callCtx, cancel, check := timeoutContext(ctx, opts.Timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		MaxOutputTokens: int32(opts.MaxTokens),
	}
	if opts.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(callCtx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		if err := check(err); errors.Is(err, ErrTimeout) {
			return "", err
		}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{Status: apiErr.Code, Message: apiErr.Message}
		}
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	c.log.Debug("completion", zap.Bool("json", opts.JSONMode), zap.Int("chars", b.Len()))
	return b.String(), nil
}
