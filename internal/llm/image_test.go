package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImages(t *testing.T, timeout time.Duration, h http.HandlerFunc) *ImageClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewImageClient(OpenAIConfig{
		BaseURL: srv.URL + "/v1",
		APIKey:  "test-key",
		Timeout: timeout,
	})
}

func imagesResponse(w http.ResponseWriter, image map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	data := []any{}
	if image != nil {
		data = append(data, image)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"created": 1700000000, "data": data})
}

func TestImageClientURL(t *testing.T) {
	var body map[string]any
	c := newTestImages(t, 0, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		imagesResponse(w, map[string]any{"url": "https://img.example/a.png"})
	})

	out, err := c.GenerateImage(context.Background(), "a soil sensor diagram")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/a.png", out)
	assert.Equal(t, DefaultImageModel, body["model"])
	assert.Equal(t, "a soil sensor diagram", body["prompt"])
	assert.Equal(t, "1024x1024", body["size"])
	assert.EqualValues(t, 1, body["n"])
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestImageClientInlineData(t *testing.T) {
	c := newTestImages(t, 0, func(w http.ResponseWriter, r *http.Request) {
		imagesResponse(w, map[string]any{"b64_json": "iVBORw0KGgo="})
	})
	out, err := c.GenerateImage(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", out)
}

func TestImageClientEmpty(t *testing.T) {
	c := newTestImages(t, 0, func(w http.ResponseWriter, r *http.Request) {
		imagesResponse(w, nil)
	})
	_, err := c.GenerateImage(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	c = newTestImages(t, 0, func(w http.ResponseWriter, r *http.Request) {
		imagesResponse(w, map[string]any{"revised_prompt": "x"})
	})
	_, err = c.GenerateImage(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestImageClientUpstreamError(t *testing.T) {
	c := newTestImages(t, 0, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"content policy violation","type":"invalid_request_error"}}`)
	})
	_, err := c.GenerateImage(context.Background(), "x")
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusBadRequest, upErr.Status)
	assert.Equal(t, "content policy violation", upErr.Message)
}

func TestImageClientConfiguredTimeout(t *testing.T) {
	c := newTestImages(t, 50*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	start := time.Now()
	_, err := c.GenerateImage(context.Background(), "x")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}
