package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is used when no model is configured.
const OpenAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAIProvider implements CoreLLM for OpenAI's chat completion API.
type openAIProvider struct {
	client *openai.Client
	model  string
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &openAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// DoRequest sends a chat completion request and returns the response
// text with the token usage reported by the API.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	req := openai.ChatCompletionRequest{
		Model:    stringOpt(opts, "model", p.model),
		Messages: p.buildMessages(prompt, stringOpt(opts, "system", "")),
	}
	if temp, ok := floatOpt(opts, "temperature"); ok {
		req.Temperature = float32(temp)
	}
	if maxTokens, ok := intOpt(opts, "max_tokens"); ok {
		req.MaxTokens = maxTokens
	}
	if format, ok := opts["response_format"].(map[string]string); ok && format["type"] == "json_object" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, p.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrNoResponseChoice
	}

	content := resp.Choices[0].Message.Content
	tokensIn := tokenCount(resp.Usage.PromptTokens, prompt)
	tokensOut := tokenCount(resp.Usage.CompletionTokens, content)
	return content, tokensIn, tokensOut, nil
}

func (p *openAIProvider) buildMessages(prompt, system string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

func (p *openAIProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return &ProviderError{
			Provider:   "openai",
			StatusCode: apiErr.HTTPStatusCode,
			Message:    message,
			Err:        err,
		}
	}
	return &ProviderError{Provider: "openai", Message: "request failed", Err: err}
}

// GetModel returns the currently configured OpenAI model name.
func (p *openAIProvider) GetModel() string { return p.model }

// SetModel updates the OpenAI model for subsequent requests.
func (p *openAIProvider) SetModel(m string) { p.model = m }

// tokenCount prefers the exact count reported by the API, falling back
// to estimation when the provider omitted usage data.
func tokenCount(apiTokens int, text string) int {
	if apiTokens > 0 {
		return apiTokens
	}
	return EstimateTokens(text)
}

func stringOpt(opts map[string]any, key, fallback string) string {
	if val, ok := opts[key].(string); ok && val != "" {
		return val
	}
	return fallback
}

func floatOpt(opts map[string]any, key string) (float64, bool) {
	switch val := opts[key].(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	default:
		return 0, false
	}
}

func intOpt(opts map[string]any, key string) (int, bool) {
	switch val := opts[key].(type) {
	case int:
		return val, true
	case float64:
		return int(val), true
	default:
		return 0, false
	}
}
