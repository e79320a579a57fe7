package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicDefaultModel is used when no model is configured.
const AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

// anthropicDefaultMaxTokens caps responses when the caller sets no limit;
// the Anthropic API requires an explicit value.
const anthropicDefaultMaxTokens = 1024

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider implements CoreLLM for Anthropic's Messages API.
type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &anthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// DoRequest sends a Messages API request and returns the concatenated
// text blocks with the token usage reported by the API.
func (p *anthropicProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	maxTokens := anthropicDefaultMaxTokens
	if val, ok := intOpt(opts, "max_tokens"); ok {
		maxTokens = val
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(stringOpt(opts, "model", p.model)),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if temp, ok := floatOpt(opts, "temperature"); ok {
		params.Temperature = anthropic.Float(temp)
	}
	if system := stringOpt(opts, "system", ""); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", 0, 0, p.wrapError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if content, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(content.Text)
		}
	}
	response := text.String()
	if response == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn := tokenCount(int(message.Usage.InputTokens), prompt)
	tokensOut := tokenCount(int(message.Usage.OutputTokens), response)
	return response, tokensIn, tokensOut, nil
}

func (p *anthropicProvider) wrapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   "anthropic",
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Error(),
			Err:        err,
		}
	}
	return &ProviderError{Provider: "anthropic", Message: "request failed", Err: err}
}

// GetModel returns the currently configured Anthropic model name.
func (p *anthropicProvider) GetModel() string { return p.model }

// SetModel updates the Anthropic model for subsequent requests.
func (p *anthropicProvider) SetModel(m string) { p.model = m }
