package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/you/backoffice/domain"
	"gorm.io/gorm"
)

// TransactionRepositoryImpl implements domain.TransactionRepository using GORM
type TransactionRepositoryImpl struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepositoryImpl {
	return &TransactionRepositoryImpl{db: db}
}

// Create implements domain.TransactionRepository
func (r *TransactionRepositoryImpl) Create(ctx context.Context, txn *domain.ScheduledTransaction) error {
	row := transactionToDB(txn)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	txn.CreatedAt = row.CreatedAt
	txn.UpdatedAt = row.UpdatedAt
	return nil
}

// FindDue implements domain.TransactionRepository. Rows come back oldest due first.
func (r *TransactionRepositoryImpl) FindDue(ctx context.Context, kind domain.TransactionKind, status domain.TransactionStatus, now time.Time) ([]domain.ScheduledTransaction, error) {
	var rows []DBScheduledTransaction
	err := r.db.WithContext(ctx).
		Where("kind = ? AND status = ? AND scheduled_processing_time <= ?", string(kind), string(status), now.UTC()).
		Order("scheduled_processing_time ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.ScheduledTransaction, 0, len(rows))
	for i := range rows {
		out = append(out, *transactionToDomain(&rows[i]))
	}
	return out, nil
}

// Transition implements domain.TransactionRepository
func (r *TransactionRepositoryImpl) Transition(ctx context.Context, tx *gorm.DB, id string, from, to domain.TransactionStatus, at time.Time) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).Model(&DBScheduledTransaction{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{"status": string(to), "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindByID implements domain.TransactionRepository
func (r *TransactionRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.ScheduledTransaction, error) {
	var row DBScheduledTransaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return transactionToDomain(&row), nil
}

func transactionToDB(t *domain.ScheduledTransaction) *DBScheduledTransaction {
	return &DBScheduledTransaction{
		ID:                      t.ID,
		UserID:                  t.UserID,
		Kind:                    string(t.Kind),
		Amount:                  t.Amount,
		Status:                  string(t.Status),
		ScheduledProcessingTime: t.ScheduledProcessingTime.UTC(),
		Remarks:                 t.Remarks,
		CreatedAt:               t.CreatedAt,
		UpdatedAt:               t.UpdatedAt,
	}
}

func transactionToDomain(row *DBScheduledTransaction) *domain.ScheduledTransaction {
	return &domain.ScheduledTransaction{
		ID:                      row.ID,
		UserID:                  row.UserID,
		Kind:                    domain.TransactionKind(row.Kind),
		Amount:                  row.Amount,
		Status:                  domain.TransactionStatus(row.Status),
		ScheduledProcessingTime: row.ScheduledProcessingTime,
		Remarks:                 row.Remarks,
		CreatedAt:               row.CreatedAt,
		UpdatedAt:               row.UpdatedAt,
	}
}

var _ domain.TransactionRepository = (*TransactionRepositoryImpl)(nil)
