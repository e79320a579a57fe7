package llm

import (
	"context"
	"errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is used when no model is configured.
const GoogleDefaultModel = "gemini-2.0-flash-exp"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider implements CoreLLM for Google's Gemini API.
type googleProvider struct {
	client *genai.Client
	model  string
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ProviderError{Provider: "google", Message: "client creation failed", Err: err}
	}

	return &googleProvider{
		client: client,
		model:  model,
	}, nil
}

// DoRequest sends a generate-content request and returns the response
// text with the token usage reported by the API.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	genConfig := &genai.GenerateContentConfig{}
	if temp, ok := floatOpt(opts, "temperature"); ok {
		genConfig.Temperature = genai.Ptr(float32(temp))
	}
	if maxTokens, ok := intOpt(opts, "max_tokens"); ok {
		genConfig.MaxOutputTokens = int32(maxTokens)
	}
	if system := stringOpt(opts, "system", ""); system != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	model := stringOpt(opts, "model", p.model)
	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), genConfig)
	if err != nil {
		return "", 0, 0, p.wrapError(err)
	}

	response := resp.Text()
	if response == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn := EstimateTokens(prompt)
	tokensOut := EstimateTokens(response)
	if resp.UsageMetadata != nil {
		tokensIn = tokenCount(int(resp.UsageMetadata.PromptTokenCount), prompt)
		tokensOut = tokenCount(int(resp.UsageMetadata.CandidatesTokenCount), response)
	}
	return response, tokensIn, tokensOut, nil
}

func (p *googleProvider) wrapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   "google",
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	return &ProviderError{Provider: "google", Message: "request failed", Err: err}
}

// GetModel returns the currently configured Gemini model name.
func (p *googleProvider) GetModel() string { return p.model }

// SetModel updates the Gemini model for subsequent requests.
func (p *googleProvider) SetModel(m string) { p.model = m }
