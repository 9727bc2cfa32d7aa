package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/you/backoffice/domain"
	"gorm.io/gorm"
)

// LoginSessionRepositoryImpl implements domain.LoginSessionRepository using GORM
type LoginSessionRepositoryImpl struct {
	db *gorm.DB
}

// NewLoginSessionRepository creates a new login session repository
func NewLoginSessionRepository(db *gorm.DB) *LoginSessionRepositoryImpl {
	return &LoginSessionRepositoryImpl{db: db}
}

// FindByID implements domain.LoginSessionRepository
func (r *LoginSessionRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.LoginSession, error) {
	var row DBLoginSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLoginSessionInvalid
		}
		return nil, err
	}
	return &domain.LoginSession{
		ID:        row.ID,
		UserID:    row.UserID,
		ExpiresAt: row.ExpiresAt,
		RevokedAt: row.RevokedAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

// RevokeAllForUser implements domain.LoginSessionRepository. Only sessions that
// are not yet revoked are touched; the count of revoked sessions is returned.
func (r *LoginSessionRepositoryImpl) RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uint, at time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).Model(&DBLoginSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at)
	return res.RowsAffected, res.Error
}

var _ domain.LoginSessionRepository = (*LoginSessionRepositoryImpl)(nil)
