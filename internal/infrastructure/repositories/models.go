package repositories

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DBUser represents the database model for User (with GORM tags)
type DBUser struct {
	ID        uint           `gorm:"primaryKey"`
	Email     string         `gorm:"uniqueIndex;size:255"`
	Phone     string         `gorm:"index;size:32"`
	Role      string         `gorm:"index;size:64"`
	IsActive  bool           `gorm:"index"`
	CreatedAt time.Time      `gorm:"index"`
	UpdatedAt time.Time      `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (DBUser) TableName() string { return "users" }

// DBScheduledTransaction is a deposit or withdrawal waiting for its processing window.
type DBScheduledTransaction struct {
	ID                      string          `gorm:"primaryKey;size:26"`
	UserID                  uint            `gorm:"index;not null"`
	Kind                    string          `gorm:"size:16;not null"`
	Amount                  decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Status                  string          `gorm:"size:16;index:idx_txn_due,priority:1;not null"`
	ScheduledProcessingTime time.Time       `gorm:"index:idx_txn_due,priority:2;not null"`
	Remarks                 string          `gorm:"size:512"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (DBScheduledTransaction) TableName() string { return "transactions" }

// DBScheduledSettlement is a trade settlement waiting for the next cycle.
type DBScheduledSettlement struct {
	ID                      string          `gorm:"primaryKey;size:26"`
	OrderID                 string          `gorm:"uniqueIndex;size:64;not null"`
	UserID                  uint            `gorm:"index;not null"`
	Amount                  decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Status                  string          `gorm:"size:16;index:idx_settlement_due,priority:1;not null"`
	ScheduledSettlementTime time.Time       `gorm:"index:idx_settlement_due,priority:2;not null"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (DBScheduledSettlement) TableName() string { return "settlements" }

// DBSegment is the catalog of trading segments a user may activate.
type DBSegment struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;size:64;not null"`
}

func (DBSegment) TableName() string { return "segments" }

// DBUserSegment is one active membership of a user in a segment.
type DBUserSegment struct {
	UserID    uint `gorm:"primaryKey"`
	SegmentID uint `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (DBUserSegment) TableName() string { return "user_segments" }

// DBDematAccount holds the freeze state of a demat account.
type DBDematAccount struct {
	ID          uint       `gorm:"primaryKey"`
	UserID      uint       `gorm:"index;not null"`
	Status      string     `gorm:"size:16;not null;default:active"`
	FreezeUntil *time.Time
	UpdatedAt   time.Time
}

func (DBDematAccount) TableName() string { return "demat_accounts" }

// DBSettlementFrequency is the single per-user settlement frequency record.
type DBSettlementFrequency struct {
	UserID    uint   `gorm:"primaryKey"`
	Frequency string `gorm:"size:16;not null"`
	UpdatedAt time.Time
}

func (DBSettlementFrequency) TableName() string { return "settlement_frequencies" }

// DBLoginSession is an authenticated login issued by the login service.
type DBLoginSession struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserID    uint      `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index"`
	RevokedAt *time.Time
	CreatedAt time.Time
}

func (DBLoginSession) TableName() string { return "login_sessions" }

// Models lists every table owned by this service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&DBUser{},
		&DBScheduledTransaction{},
		&DBScheduledSettlement{},
		&DBSegment{},
		&DBUserSegment{},
		&DBDematAccount{},
		&DBSettlementFrequency{},
		&DBLoginSession{},
	}
}
