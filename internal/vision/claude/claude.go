package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/applicheck/internal/vision"
)

// maxTokens leaves headroom over the single line the prompt asks for.
const maxTokens = 256

type Describer struct {
	client *anthropic.Client
	model  string
}

func NewDescriber(apiKey, model string, opts ...anthropic.ClientOption) *Describer {
	return &Describer{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (d *Describer) Describe(ctx context.Context, r io.Reader, mimeType string) (*vision.Suggestion, error) {
	imageData, err := vision.ReadImage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := d.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(d.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					base64.StdEncoding.EncodeToString(imageData),
				)),
				anthropic.NewTextMessageContent(vision.SuggestPrompt),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	var text string
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			text = c.GetText()
			break
		}
	}

	s := vision.ParseSuggestion(text)
	return &s, nil
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// Unknown types are coerced to jpeg. Callers should validate MIME types before
// reaching this layer.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
