package provider

import (
	"context"
	"sync"
)

// MockClient is a scriptable client for tests and local development.
type MockClient struct {
	mu    sync.Mutex
	Reply string
	Err   error
	Calls int
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Calls++
	reply, err := m.Reply, m.Err
	m.mu.Unlock()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", NewFault(KindOther, ctxErr)
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}
