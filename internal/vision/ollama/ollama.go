package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vbonduro/applicheck/internal/vision"
)

type Describer struct {
	host   string
	model  string
	client *http.Client
}

func NewDescriber(host, model string) *Describer {
	return &Describer{
		host:   host,
		model:  model,
		client: &http.Client{},
	}
}

func (d *Describer) Describe(ctx context.Context, r io.Reader, mimeType string) (*vision.Suggestion, error) {
	imageData, err := vision.ReadImage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	reqBody := map[string]interface{}{
		"model":  d.model,
		"prompt": vision.SuggestPrompt,
		"images": []string{base64.StdEncoding.EncodeToString(imageData)},
		"stream": false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	s := vision.ParseSuggestion(respBody.Response)
	return &s, nil
}
