package generation

import (
	"context"
	"sync"
)

// RecordedCall captures one generation request made against the mock.
type RecordedCall struct {
	System string
	User   string
}

// MockGenerator returns scripted replies in order and records every call.
// When the script runs out, the last reply repeats.
type MockGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	Calls   []RecordedCall
}

func NewMockGenerator(replies ...string) *MockGenerator {
	return &MockGenerator{replies: replies}
}

// NewFailingGenerator returns a mock whose every call fails with err.
func NewFailingGenerator(err error) *MockGenerator {
	return &MockGenerator{err: err}
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return m.record(ctx, "", prompt)
}

func (m *MockGenerator) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.record(ctx, systemPrompt, userPrompt)
}

func (m *MockGenerator) ModelName() string {
	return "mock/scripted"
}

func (m *MockGenerator) record(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, RecordedCall{System: system, User: user})
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", nil
	}

	idx := len(m.Calls) - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	return m.replies[idx], nil
}
