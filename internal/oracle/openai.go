package oracle

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/wmcube/settlesplit/internal/models"
	"github.com/wmcube/settlesplit/internal/names"
)

// OpenAIExtractor asks an OpenAI vision model to read one page image. It is
// the drop-in alternative to the Gemini backend for deployments without a
// GCP project.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
	prompt string
}

// NewOpenAIExtractor creates an OpenAI-backed extractor. An empty model name
// selects GPT-4o.
func NewOpenAIExtractor(apiKey, model string, n *names.Normalizer) (*OpenAIExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewOpenAIExtractor: api key cannot be empty")
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIExtractor{
		client: openai.NewClient(apiKey),
		model:  model,
		prompt: BuildPrompt(n),
	}, nil
}

func (o *OpenAIExtractor) Extract(ctx context.Context, pageImage []byte) (*models.Record, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pageImage)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: o.prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: dataURL,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}
	return Normalize(resp.Choices[0].Message.Content), nil
}
