package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"go.uber.org/zap"
)

const DefaultImageModel = "openai/dall-e-3"

// ImageClient generates illustrations through an OpenAI-compatible images
// endpoint.
type ImageClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

func NewImageClient(cfg OpenAIConfig) *ImageClient {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultImageModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ImageClient{
		client:  openai.NewClient(clientOptions(cfg.BaseURL, cfg.APIKey, cfg.Referer, cfg.Title, cfg.HTTPClient)...),
		model:   model,
		timeout: timeout,
		log:     log,
	}
}

// GenerateImage returns a URL for prompt, or a data URI when the backend
// answers with inline base64 content.
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel, check := timeoutContext(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Images.Generate(callCtx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.model),
		Size:   openai.ImageGenerateParamsSize1024x1024,
		N:      openai.Int(1),
	})
	if err != nil {
		if err := check(err); errors.Is(err, ErrTimeout) {
			return "", err
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = http.StatusText(apiErr.StatusCode)
			}
			return "", &UpstreamError{Status: apiErr.StatusCode, Message: msg}
		}
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", ErrEmptyResponse
	}
	img := resp.Data[0]
	switch {
	case img.URL != "":
		return img.URL, nil
	case img.B64JSON != "":
		return "data:image/png;base64," + img.B64JSON, nil
	default:
		return "", ErrEmptyResponse
	}
}
