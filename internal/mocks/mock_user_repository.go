package mocks

import (
	"context"

	"github.com/you/backoffice/domain"
)

// MockUserRepository implements domain.UserRepository and domain.PhoneResolver for testing
type MockUserRepository struct {
	FindByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
	FindByIDFunc    func(ctx context.Context, id uint) (*domain.User, error)
	PhoneForFunc    func(ctx context.Context, identifier string) (string, error)
}

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

// FindByEmail finds a user by email
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// FindByID finds a user by ID
func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// PhoneFor returns the phone on file for an identifier
func (m *MockUserRepository) PhoneFor(ctx context.Context, identifier string) (string, error) {
	if m.PhoneForFunc != nil {
		return m.PhoneForFunc(ctx, identifier)
	}
	// Default behavior: no phone on file
	return "", nil
}

// Compile-time interface compliance verification
var (
	_ domain.UserRepository = (*MockUserRepository)(nil)
	_ domain.PhoneResolver  = (*MockUserRepository)(nil)
)
