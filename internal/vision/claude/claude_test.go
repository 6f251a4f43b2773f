package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Describer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewDescriber("sk-test", "claude-sonnet-4-5", anthropic.WithBaseURL(server.URL))
}

func TestClaudeDescribe(t *testing.T) {
	var gotModel, gotKey string
	var gotContent []map[string]any
	d := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []map[string]any `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		if len(req.Messages) > 0 {
			gotContent = req.Messages[0].Content
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       req.Model,
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": "Thermal imaging camera | Handheld camera for finding casualties in smoke"},
			},
			"usage": map[string]any{"input_tokens": 10, "output_tokens": 12},
		})
	})

	s, err := d.Describe(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/heic")
	require.NoError(t, err)
	assert.Equal(t, "Thermal imaging camera", s.Name)
	assert.Equal(t, "Handheld camera for finding casualties in smoke", s.Desc)
	assert.Equal(t, "sk-test", gotKey)
	assert.Equal(t, "claude-sonnet-4-5", gotModel)
	require.Len(t, gotContent, 2)
	assert.Equal(t, "image", gotContent[0]["type"])
	source, _ := gotContent[0]["source"].(map[string]any)
	assert.Equal(t, "image/jpeg", source["media_type"])
}

func TestClaudeDescribeAPIError(t *testing.T) {
	d := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	})

	_, err := d.Describe(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	assert.Error(t, err)
}

func TestClaudeDescribeReadError(t *testing.T) {
	d := NewDescriber("sk-test", "claude-sonnet-4-5")

	_, err := d.Describe(context.Background(), &errReader{}, "image/jpeg")
	assert.Error(t, err)

	_, err = d.Describe(context.Background(), bytes.NewReader(nil), "image/jpeg")
	assert.Error(t, err)
}

// errReader always returns an error on Read.
type errReader struct{}

func (e *errReader) Read(_ []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestNormaliseMIME(t *testing.T) {
	assert.Equal(t, "image/png", normaliseMIME("image/png"))
	assert.Equal(t, "image/webp", normaliseMIME("image/webp"))
	assert.Equal(t, "image/jpeg", normaliseMIME("application/octet-stream"))
}
