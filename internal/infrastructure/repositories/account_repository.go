package repositories

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/you/backoffice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository reads and writes the account settings that verified
// mutations change. Write methods take the caller's transaction; a nil tx
// runs against the base connection.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx)
}

// SegmentIDs resolves segment names against the catalog.
func (r *AccountRepository) SegmentIDs(ctx context.Context, tx *gorm.DB, names []string) (map[string]uint, error) {
	var rows []DBSegment
	if err := r.conn(ctx, tx).Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(rows))
	for _, row := range rows {
		ids[row.Name] = row.ID
	}
	return ids, nil
}

// ActiveSegments returns the sorted names of the user's active segments.
func (r *AccountRepository) ActiveSegments(ctx context.Context, tx *gorm.DB, userID uint) ([]string, error) {
	var names []string
	err := r.conn(ctx, tx).
		Table(DBUserSegment{}.TableName()+" AS us").
		Select("s.name").
		Joins("JOIN "+DBSegment{}.TableName()+" AS s ON s.id = us.segment_id").
		Where("us.user_id = ?", userID).
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// AddSegments inserts memberships, ignoring ones that already exist.
func (r *AccountRepository) AddSegments(ctx context.Context, tx *gorm.DB, userID uint, segmentIDs []uint) error {
	if len(segmentIDs) == 0 {
		return nil
	}
	rows := make([]DBUserSegment, 0, len(segmentIDs))
	for _, id := range segmentIDs {
		rows = append(rows, DBUserSegment{UserID: userID, SegmentID: id})
	}
	return r.conn(ctx, tx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// RemoveSegments deletes memberships.
func (r *AccountRepository) RemoveSegments(ctx context.Context, tx *gorm.DB, userID uint, segmentIDs []uint) error {
	if len(segmentIDs) == 0 {
		return nil
	}
	return r.conn(ctx, tx).
		Where("user_id = ? AND segment_id IN ?", userID, segmentIDs).
		Delete(&DBUserSegment{}).Error
}

// FindDematAccount loads a demat account owned by userID.
func (r *AccountRepository) FindDematAccount(ctx context.Context, tx *gorm.DB, id, userID uint) (*domain.DematAccount, error) {
	var row DBDematAccount
	err := r.conn(ctx, tx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDematNotFound
		}
		return nil, err
	}
	return &domain.DematAccount{
		ID:          row.ID,
		UserID:      row.UserID,
		Status:      domain.DematStatus(row.Status),
		FreezeUntil: row.FreezeUntil,
	}, nil
}

// UpdateDematStatus sets status and freeze_until on one account.
func (r *AccountRepository) UpdateDematStatus(ctx context.Context, tx *gorm.DB, id uint, status domain.DematStatus, freezeUntil *time.Time, at time.Time) error {
	return r.conn(ctx, tx).Model(&DBDematAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       string(status),
			"freeze_until": freezeUntil,
			"updated_at":   at,
		}).Error
}

// SettlementFrequency returns the user's frequency, or "" if none is stored.
func (r *AccountRepository) SettlementFrequency(ctx context.Context, tx *gorm.DB, userID uint) (domain.SettlementFrequency, error) {
	var row DBSettlementFrequency
	err := r.conn(ctx, tx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return domain.SettlementFrequency(row.Frequency), nil
}

// UpsertSettlementFrequency writes the single per-user frequency record.
func (r *AccountRepository) UpsertSettlementFrequency(ctx context.Context, tx *gorm.DB, userID uint, freq domain.SettlementFrequency, at time.Time) error {
	row := DBSettlementFrequency{UserID: userID, Frequency: string(freq), UpdatedAt: at}
	return r.conn(ctx, tx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"frequency", "updated_at"}),
	}).Create(&row).Error
}
var _ domain.AccountRepository = (*AccountRepository)(nil)
