package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/backend"
)

var errNoChoices = errors.New("backend returned no completion candidates")

// Gemini is an LLM client for the Google GenAI API.
type Gemini struct {
	model *genai.GenerativeModel
}

// NewGemini creates a new Gemini client for the given model name.
func NewGemini(apiKey, modelName string) (*Gemini, error) {
	if modelName == "" {
		return nil, backend.Configf("gemini llm model name is empty")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, backend.Configf("failed to create genai client: %v", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(assessmentTemperature)
	return &Gemini{model: model}, nil
}

// Generate completes the prompt and concatenates the text parts of the first
// candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", backend.Transient("generate", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", backend.Transient("generate", errNoChoices)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

var _ LLM = (*Gemini)(nil)
