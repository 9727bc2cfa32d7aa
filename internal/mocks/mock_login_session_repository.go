package mocks

import (
	"context"
	"time"

	"github.com/you/backoffice/domain"
	"gorm.io/gorm"
)

// MockLoginSessionRepository implements domain.LoginSessionRepository interface for testing
type MockLoginSessionRepository struct {
	FindByIDFunc         func(ctx context.Context, id string) (*domain.LoginSession, error)
	RevokeAllForUserFunc func(ctx context.Context, tx *gorm.DB, userID uint, at time.Time) (int64, error)
}

// NewMockLoginSessionRepository creates a new MockLoginSessionRepository with default behaviors
func NewMockLoginSessionRepository() *MockLoginSessionRepository {
	return &MockLoginSessionRepository{}
}

// FindByID finds a login session
func (m *MockLoginSessionRepository) FindByID(ctx context.Context, id string) (*domain.LoginSession, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	// Default behavior: an active session owned by user 1
	return &domain.LoginSession{
		ID:        id,
		UserID:    1,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}, nil
}

// RevokeAllForUser revokes every active session of a user
func (m *MockLoginSessionRepository) RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uint, at time.Time) (int64, error) {
	if m.RevokeAllForUserFunc != nil {
		return m.RevokeAllForUserFunc(ctx, tx, userID, at)
	}
	// Default behavior: nothing to revoke
	return 0, nil
}

// Compile-time interface compliance verification
var _ domain.LoginSessionRepository = (*MockLoginSessionRepository)(nil)
