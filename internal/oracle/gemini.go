package oracle

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/wmcube/settlesplit/internal/models"
	"github.com/wmcube/settlesplit/internal/names"
)

// GeminiExtractor asks a Vertex AI Gemini model to read one page image.
type GeminiExtractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
	prompt string
}

// NewGeminiExtractor creates a Gemini-backed extractor. The model is forced
// to JSON output at temperature 0 for deterministic, structured responses.
func NewGeminiExtractor(ctx context.Context, projectID, region, modelName string, n *names.Normalizer) (*GeminiExtractor, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewGeminiExtractor: projectID and region cannot be empty")
	}

	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &GeminiExtractor{
		client: client,
		model:  model,
		prompt: BuildPrompt(n),
	}, nil
}

// Extract sends the rendered page and returns the normalized record, or nil
// when the response does not carry one.
func (g *GeminiExtractor) Extract(ctx context.Context, pageImage []byte) (*models.Record, error) {
	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("png", pageImage),
		genai.Text(g.prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	return Normalize(collectText(resp)), nil
}

func (g *GeminiExtractor) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// collectText concatenates the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
