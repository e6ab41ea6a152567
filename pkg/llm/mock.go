package llm

import "context"

// MockChatClient is a configurable mock for testing AI-assisted stages.
// Set GenerateResponseFunc to control behavior in tests.
type MockChatClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, an empty result and nil error are returned.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*ChatResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// GenerateResponseCalls counts invocations for escalation assertions.
	GenerateResponseCalls int

	// Prompts records every prompt sent, for content assertions.
	Prompts []string
}

// NewMockChatClient creates a new mock with defaults.
func NewMockChatClient() *MockChatClient {
	return &MockChatClient{Model: "mock-model"}
}

// GenerateResponse implements ChatClient.
func (m *MockChatClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*ChatResult, error) {
	m.GenerateResponseCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return &ChatResult{}, nil
}

// GetModel implements ChatClient.
func (m *MockChatClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Reset clears call tracking.
func (m *MockChatClient) Reset() {
	m.GenerateResponseCalls = 0
	m.Prompts = nil
}

var _ ChatClient = (*MockChatClient)(nil)
