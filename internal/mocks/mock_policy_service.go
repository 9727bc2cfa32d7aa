package mocks

import (
	"strings"

	"github.com/you/backoffice/domain"
)

// MockPolicyService implements domain.PolicyService interface for testing
type MockPolicyService struct {
	CheckPermissionFunc func(role, resource, action string) (bool, error)
	EnsurePolicyFunc    func(role, resource, action string) error
}

// NewMockPolicyService creates a new MockPolicyService with default behaviors
func NewMockPolicyService() *MockPolicyService {
	return &MockPolicyService{}
}

// CheckPermission checks if a role has permission for a resource and action
func (m *MockPolicyService) CheckPermission(role, resource, action string) (bool, error) {
	if m.CheckPermissionFunc != nil {
		return m.CheckPermissionFunc(role, resource, action)
	}
	// Default behavior: admins may call anything, users everything outside /admin
	if role == "role_admin" {
		return true, nil
	}
	return !strings.HasPrefix(resource, "/admin"), nil
}

// EnsurePolicy adds an authorization policy
func (m *MockPolicyService) EnsurePolicy(role, resource, action string) error {
	if m.EnsurePolicyFunc != nil {
		return m.EnsurePolicyFunc(role, resource, action)
	}
	// Default behavior: success
	return nil
}

// Compile-time interface compliance verification
var _ domain.PolicyService = (*MockPolicyService)(nil)
