// Package llm provides a provider-agnostic client for the generative
// backends the refinement steps call into. It abstracts OpenAI,
// Anthropic, and Google behind one interface and layers cross-cutting
// concerns (retry, timeouts, rate limiting) through a middleware chain,
// so refinement collaborators can switch providers or gain resilience
// without changing step code.
//
// Basic usage:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Middleware: []llm.Middleware{
//	        llm.RetryMiddleware(3, 500*time.Millisecond, 10*time.Second),
//	        llm.RateLimitMiddleware(10, 20),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/go-refine/internal/ports"
)

// CoreLLM is the minimal surface a provider must implement. Middleware
// wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends prompt to the provider and returns the response
	// text plus input and output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel switches the model for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM to add cross-cutting behavior. Middleware
// composes: the first entry in ClientConfig.Middleware is outermost.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds provider and middleware settings for NewClient.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model selects the provider model; empty uses the provider default.
	Model string

	// BaseURL overrides the provider's default endpoint when non-empty.
	BaseURL string

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// ProviderFactory constructs a provider-specific CoreLLM from config.
type ProviderFactory func(config ClientConfig) (CoreLLM, error)

var (
	factoryMu         sync.RWMutex
	providerFactories = make(map[string]ProviderFactory)
)

// RegisterProviderFactory makes a provider available to NewClient under
// the given name. Providers self-register from init.
func RegisterProviderFactory(name string, factory ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	providerFactories[name] = factory
}

// Client implements ports.LLMClient over a middleware-wrapped CoreLLM.
type Client struct {
	core CoreLLM
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient assembles the middleware chain around the named provider and
// returns a ready-to-use client.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factoryMu.RLock()
	factory, ok := providerFactories[providerType]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	// Apply in reverse so the first middleware is outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// Complete sends a completion request through the middleware chain.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// EstimateTokens approximates the token count of text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return EstimateTokens(text), nil
}

// GetModel returns the model identifier used by this client.
func (c *Client) GetModel() string { return c.core.GetModel() }

// charsPerToken is the rough character-to-token ratio used when a
// provider does not report exact counts.
const charsPerToken = 4

// EstimateTokens provides a simple character-based token estimate shared
// by providers that lack exact usage reporting.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}
