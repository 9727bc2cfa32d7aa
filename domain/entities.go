package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// User represents an account holder. Only the contact fields are read by this service.
type User struct {
	ID        uint
	Email     string
	Phone     string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Challenge is a pending verified mutation waiting for its one-time code.
// It lives in the code store under "{feature}:{ID}" and expires with its TTL.
type Challenge struct {
	ID         string          `json:"id"`
	Feature    string          `json:"feature"`
	UserID     uint            `json:"user_id"`
	Identifier string          `json:"identifier"`
	Payload    json.RawMessage `json:"payload"`
	IsUsed     bool            `json:"is_used"`
	CreatedAt  time.Time       `json:"created_at"`
}

// InitiateResult is returned to the caller of an initiate operation.
// RequiresOTP is false when the requested change is already in effect.
type InitiateResult struct {
	SessionID   string `json:"session_id,omitempty"`
	RequiresOTP bool   `json:"requires_otp"`
}

// TransactionKind distinguishes deposits from withdrawals.
type TransactionKind string

const (
	TransactionDeposit    TransactionKind = "deposit"
	TransactionWithdrawal TransactionKind = "withdrawal"
)

// TransactionStatus moves forward only: pending -> processing -> completed|failed.
type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "pending"
	TransactionProcessing TransactionStatus = "processing"
	TransactionCompleted  TransactionStatus = "completed"
	TransactionFailed     TransactionStatus = "failed"
)

// ScheduledTransaction is a fund movement waiting for its processing window.
type ScheduledTransaction struct {
	ID                      string            `json:"id"`
	UserID                  uint              `json:"user_id"`
	Kind                    TransactionKind   `json:"kind"`
	Amount                  decimal.Decimal   `json:"amount"`
	Status                  TransactionStatus `json:"status"`
	ScheduledProcessingTime time.Time         `json:"scheduled_processing_time"`
	Remarks                 string            `json:"remarks,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

// SettlementStatus moves forward only: scheduled -> processing -> completed|failed.
type SettlementStatus string

const (
	SettlementScheduled  SettlementStatus = "scheduled"
	SettlementProcessing SettlementStatus = "processing"
	SettlementCompleted  SettlementStatus = "completed"
	SettlementFailed     SettlementStatus = "failed"
)

// ScheduledSettlement is a trade settlement waiting for the next settlement cycle.
type ScheduledSettlement struct {
	ID                      string           `json:"id"`
	OrderID                 string           `json:"order_id"`
	UserID                  uint             `json:"user_id"`
	Amount                  decimal.Decimal  `json:"amount"`
	Status                  SettlementStatus `json:"status"`
	ScheduledSettlementTime time.Time        `json:"scheduled_settlement_time"`
	CreatedAt               time.Time        `json:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at"`
}

// Order is the minimal view of an executed trade needed to queue its settlement.
type Order struct {
	ID     string
	UserID uint
	Amount decimal.Decimal
}

// ScheduledTime is a due time paired with the window it falls in.
type ScheduledTime struct {
	Time  time.Time `json:"time"`
	Label string    `json:"label"`
}

// DematStatus of a demat account.
type DematStatus string

const (
	DematActive DematStatus = "active"
	DematFrozen DematStatus = "frozen"
)

// DematAccount is the subset of demat metadata touched by freeze/unfreeze.
type DematAccount struct {
	ID          uint        `json:"id"`
	UserID      uint        `json:"user_id"`
	Status      DematStatus `json:"status"`
	FreezeUntil *time.Time  `json:"freeze_until,omitempty"`
}

// SettlementFrequency chosen by the user for running-account settlement.
type SettlementFrequency string

const (
	SettlementMonthly   SettlementFrequency = "monthly"
	SettlementQuarterly SettlementFrequency = "quarterly"
)

// LoginSession is an authenticated login; revoking it logs the user out.
type LoginSession struct {
	ID        string
	UserID    uint
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the session may still authenticate requests.
func (s *LoginSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// PushMessage is sent to a user's live connection.
type PushMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
