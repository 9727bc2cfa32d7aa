package mocks

import (
	"sync"

	"github.com/you/backoffice/domain"
)

// MockConn implements domain.Conn and records pushed messages
type MockConn struct {
	SendFunc func(msg domain.PushMessage) error

	mu     sync.Mutex
	sent   []domain.PushMessage
	closed bool
}

// NewMockConn creates a new MockConn
func NewMockConn() *MockConn {
	return &MockConn{}
}

// Send records the message
func (m *MockConn) Send(msg domain.PushMessage) error {
	if m.SendFunc != nil {
		return m.SendFunc(msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Close marks the connection closed
func (m *MockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns a copy of the pushed messages
func (m *MockConn) Sent() []domain.PushMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PushMessage(nil), m.sent...)
}

// Closed reports whether Close was called
func (m *MockConn) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Compile-time interface compliance verification
var _ domain.Conn = (*MockConn)(nil)
