package llm

import "context"

// MockContentClient is a configurable mock for testing generation flows.
// Set the function fields to control behavior in tests.
type MockContentClient struct {
	// GenerateContentFunc is called when GenerateContent is invoked.
	// If nil, returns an empty result and nil error.
	GenerateContentFunc func(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// Name is returned by ProviderName. Defaults to "mock".
	Name string

	// Call tracking for verification
	GenerateContentCalls int
}

// NewMockContentClient creates a new mock with sensible defaults.
func NewMockContentClient() *MockContentClient {
	return &MockContentClient{Name: "mock"}
}

// GenerateContent implements ContentClient.
func (m *MockContentClient) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	m.GenerateContentCalls++
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, req)
	}
	return &GenerateResult{Provider: m.ProviderName()}, nil
}

// ProviderName implements ContentClient.
func (m *MockContentClient) ProviderName() string {
	if m.Name == "" {
		return "mock"
	}
	return m.Name
}

var _ ContentClient = (*MockContentClient)(nil)
