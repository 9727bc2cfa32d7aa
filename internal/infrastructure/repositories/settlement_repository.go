package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/you/backoffice/domain"
	"gorm.io/gorm"
)

// SettlementRepositoryImpl implements domain.SettlementRepository using GORM
type SettlementRepositoryImpl struct {
	db *gorm.DB
}

// NewSettlementRepository creates a new settlement repository
func NewSettlementRepository(db *gorm.DB) *SettlementRepositoryImpl {
	return &SettlementRepositoryImpl{db: db}
}

// Create implements domain.SettlementRepository
func (r *SettlementRepositoryImpl) Create(ctx context.Context, s *domain.ScheduledSettlement) error {
	row := settlementToDB(s)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	s.CreatedAt = row.CreatedAt
	s.UpdatedAt = row.UpdatedAt
	return nil
}

// FindDue implements domain.SettlementRepository
func (r *SettlementRepositoryImpl) FindDue(ctx context.Context, status domain.SettlementStatus, now time.Time) ([]domain.ScheduledSettlement, error) {
	var rows []DBScheduledSettlement
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_settlement_time <= ?", string(status), now.UTC()).
		Order("scheduled_settlement_time ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.ScheduledSettlement, 0, len(rows))
	for i := range rows {
		out = append(out, *settlementToDomain(&rows[i]))
	}
	return out, nil
}

// Transition implements domain.SettlementRepository
func (r *SettlementRepositoryImpl) Transition(ctx context.Context, tx *gorm.DB, id string, from, to domain.SettlementStatus, at time.Time) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).Model(&DBScheduledSettlement{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{"status": string(to), "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindByID implements domain.SettlementRepository
func (r *SettlementRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.ScheduledSettlement, error) {
	var row DBScheduledSettlement
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return settlementToDomain(&row), nil
}

func settlementToDB(s *domain.ScheduledSettlement) *DBScheduledSettlement {
	return &DBScheduledSettlement{
		ID:                      s.ID,
		OrderID:                 s.OrderID,
		UserID:                  s.UserID,
		Amount:                  s.Amount,
		Status:                  string(s.Status),
		ScheduledSettlementTime: s.ScheduledSettlementTime.UTC(),
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
}

func settlementToDomain(row *DBScheduledSettlement) *domain.ScheduledSettlement {
	return &domain.ScheduledSettlement{
		ID:                      row.ID,
		OrderID:                 row.OrderID,
		UserID:                  row.UserID,
		Amount:                  row.Amount,
		Status:                  domain.SettlementStatus(row.Status),
		ScheduledSettlementTime: row.ScheduledSettlementTime,
		CreatedAt:               row.CreatedAt,
		UpdatedAt:               row.UpdatedAt,
	}
}

var _ domain.SettlementRepository = (*SettlementRepositoryImpl)(nil)
