package llm

import (
	"context"
	"sync"
	"time"
)

// MockCoreLLM is a configurable CoreLLM test double shared by the llm
// package tests and consumers that need a scripted backend.
type MockCoreLLM struct {
	mu sync.Mutex

	// Response is returned on success.
	Response string

	// Error, when set, is returned on every call.
	Error error

	// FailUntilAttempt fails the first N calls before succeeding.
	FailUntilAttempt int

	// ResponseDelay simulates provider latency.
	ResponseDelay time.Duration

	// LastPrompt and LastOpts capture the most recent request.
	LastPrompt string
	LastOpts   map[string]any

	model     string
	callCount int
	callTimes []time.Time
}

// NewMockCoreLLM creates a mock with a default model and response.
func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{
		Response: "test response",
		model:    "test-model",
	}
}

// DoRequest returns the scripted response or error, tracking call
// metadata for assertions.
func (m *MockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.callCount++
	attempt := m.callCount
	m.callTimes = append(m.callTimes, time.Now())
	m.LastPrompt = prompt
	m.LastOpts = opts
	m.mu.Unlock()

	if m.ResponseDelay > 0 {
		select {
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		case <-time.After(m.ResponseDelay):
		}
	}

	if m.Error != nil {
		return "", 0, 0, m.Error
	}
	if attempt <= m.FailUntilAttempt {
		return "", 0, 0, &ProviderError{Provider: "mock", StatusCode: 500, Message: "transient"}
	}
	return m.Response, EstimateTokens(prompt), EstimateTokens(m.Response), nil
}

// CallCount returns how many times DoRequest has been invoked.
func (m *MockCoreLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// GetModel returns the mock's model name.
func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// SetModel updates the mock's model name.
func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}
