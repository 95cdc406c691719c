package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

// DefaultBaseURL is the OpenAI-compatible router used when none is configured.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Referer and Title are sent as HTTP-Referer and X-Title for hosted routers.
	Referer    string
	Title      string
	HTTPClient *http.Client
	// Timeout bounds image requests. Completions take theirs from Options.
	Timeout time.Duration
	Logger  *zap.Logger
}

// OpenAIClient is a Completer backed by an OpenAI-compatible chat
// completions endpoint.
type OpenAIClient struct {
	client openai.Client
	model  string
	log    *zap.Logger
}

func clientOptions(baseURL, apiKey, referer, title string, hc *http.Client) []option.RequestOption {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(baseURL, "/") + "/"),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if referer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", referer))
	}
	if title != "" {
		opts = append(opts, option.WithHeader("X-Title", title))
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	return opts
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAIClient{
		client: openai.NewClient(clientOptions(cfg.BaseURL, cfg.APIKey, cfg.Referer, cfg.Title, cfg.HTTPClient)...),
		model:  cfg.Model,
		log:    log.With(zap.String("model", cfg.Model)),
	}
}

// Complete sends prompt as a single user message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	opts = opts.withDefaults()
	callCtx, cancel, check := timeoutContext(ctx, opts.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(opts.Temperature),
		MaxTokens:   openai.Int(int64(opts.MaxTokens)),
	}
	if opts.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(callCtx, params)
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
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	c.log.Debug("completion",
		zap.Bool("json", opts.JSONMode),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}
