package mocks

import (
	"sync"

	"github.com/you/backoffice/domain"
)

// MockCasbinEnforcer implements the CasbinEnforcer interface for testing.
// Without an EnforceFunc it allows exact (sub, obj, act) matches of stored policies.
type MockCasbinEnforcer struct {
	EnforceFunc   func(rvals ...interface{}) (bool, error)
	AddPolicyFunc func(params ...interface{}) (bool, error)

	mu       sync.Mutex
	policies [][]string
	addCalls int
}

// Compile-time interface compliance verification
var _ domain.CasbinEnforcer = (*MockCasbinEnforcer)(nil)

// NewMockCasbinEnforcer creates a new MockCasbinEnforcer with no policies
func NewMockCasbinEnforcer() *MockCasbinEnforcer {
	return &MockCasbinEnforcer{}
}

// AddPolicy adds a new policy rule; it reports false when the rule already exists
func (m *MockCasbinEnforcer) AddPolicy(params ...interface{}) (bool, error) {
	m.mu.Lock()
	m.addCalls++
	m.mu.Unlock()
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(params...)
	}

	rule := toStrings(params)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(rule) >= 0 {
		return false, nil
	}
	m.policies = append(m.policies, rule)
	return true, nil
}

// Enforce checks if a request should be allowed
func (m *MockCasbinEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOf(toStrings(rvals)) >= 0, nil
}

// Policies returns a copy of the stored rules (test helper)
func (m *MockCasbinEnforcer) Policies() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.policies))
	for i, p := range m.policies {
		out[i] = append([]string(nil), p...)
	}
	return out
}

// AddCalls reports how many times AddPolicy ran (test helper)
func (m *MockCasbinEnforcer) AddCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addCalls
}

func (m *MockCasbinEnforcer) indexOf(rule []string) int {
	for i, p := range m.policies {
		if len(p) != len(rule) {
			continue
		}
		match := true
		for j := range p {
			if p[j] != rule[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func toStrings(params []interface{}) []string {
	out := make([]string, len(params))
	for i, p := range params {
		if s, ok := p.(string); ok {
			out[i] = s
		}
	}
	return out
}
