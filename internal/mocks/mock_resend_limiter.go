package mocks

import (
	"context"
	"sync"

	"github.com/you/backoffice/domain"
)

// MockResendLimiter implements domain.ResendLimiter with an in-memory counter
type MockResendLimiter struct {
	AllowFunc func(ctx context.Context, key string) (bool, error)
	ResetFunc func(ctx context.Context, key string) error
	Limit     int

	mu     sync.Mutex
	counts map[string]int
}

// NewMockResendLimiter creates a limiter that admits limit attempts per key
func NewMockResendLimiter(limit int) *MockResendLimiter {
	return &MockResendLimiter{Limit: limit, counts: make(map[string]int)}
}

// Allow counts one attempt
func (m *MockResendLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key] <= m.Limit, nil
}

// Reset clears the counter for key
func (m *MockResendLimiter) Reset(ctx context.Context, key string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, key)
	return nil
}

// Count returns the attempts recorded for key (test helper)
func (m *MockResendLimiter) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

// Compile-time interface compliance verification
var _ domain.ResendLimiter = (*MockResendLimiter)(nil)
