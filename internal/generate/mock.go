package generate

import "context"

// MockProvider is an offline test double selected with --provider mock.
// It returns Response (or a minimal single-scenario payload when Response
// is empty) and Err as configured.
type MockProvider struct {
	Response string
	Err      error
	// Calls counts Complete invocations; useful for budget assertions.
	Calls int
}

func (m *MockProvider) Complete(_ context.Context, _, _ string, _ int, _ float64) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return `{"scenarios":[{"id":"SCN-001","title":"placeholder scenario","given":"a patient record","when":"the rule fires","then":"a suggestion is shown"}]}`, nil
}
