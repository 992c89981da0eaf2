package llm

import (
	"context"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/backend"
)

// assessmentTemperature keeps the significance judgment close to
// deterministic across runs. The chat API takes a pointer, so this is a
// variable rather than a constant.
var assessmentTemperature float32 = 0.3

// OpenAI is an LLM client for the OpenAI chat completion API (or any
// OpenAI-compatible proxy endpoint).
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI client. baseURL is optional and points
// completion traffic at a proxy when set.
func NewOpenAI(apiKey, baseURL, modelName string) (*OpenAI, error) {
	if modelName == "" {
		return nil, backend.Configf("openai llm model name is empty")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: modelName}, nil
}

// Generate completes the prompt with a single chat completion call.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: &assessmentTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", backend.Transient("generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", backend.Transient("generate", errNoChoices)
	}
	return resp.Choices[0].Message.Content, nil
}

var _ LLM = (*OpenAI)(nil)
