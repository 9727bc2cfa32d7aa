package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// UserRepository defines user data access operations
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
}

// ChallengeStore persists verified-mutation sessions in the code store.
type ChallengeStore interface {
	Create(ctx context.Context, challenge *Challenge, ttl time.Duration) error
	Find(ctx context.Context, feature, id string) (*Challenge, error)
	// MarkUsed flips IsUsed atomically. It returns false when the challenge is
	// missing or another caller already marked it.
	MarkUsed(ctx context.Context, feature, id string) (bool, error)
	Delete(ctx context.Context, feature, id string) error
}

// OTPService issues and checks one-time codes bound to (identifier, context).
type OTPService interface {
	SendOTP(ctx context.Context, identifier, otpContext string) error
	VerifyOTP(ctx context.Context, identifier, otpContext, code string) error
	ResendExistingOTP(ctx context.Context, identifier, otpContext string) error
}

// ResendLimiter bounds resend attempts per key inside a TTL window.
type ResendLimiter interface {
	// Allow atomically counts one attempt and reports whether it is within the ceiling.
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// NotificationService defines notification operations
type NotificationService interface {
	SendSMS(ctx context.Context, to, message string) error
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// PhoneResolver finds the phone number registered for an identifier, if any.
type PhoneResolver interface {
	PhoneFor(ctx context.Context, identifier string) (string, error)
}

// Applier performs a feature's durable change inside an open transaction.
// It is invoked at most once per challenge.
type Applier[P any, R any] interface {
	Apply(ctx context.Context, tx *gorm.DB, userID uint, payload P) (R, error)
}

// NoopDetector reports whether a payload would leave the account unchanged.
type NoopDetector[P any] interface {
	IsNoop(ctx context.Context, userID uint, payload P) (bool, error)
}

// TransactionRepository stores scheduled deposits and withdrawals.
type TransactionRepository interface {
	Create(ctx context.Context, txn *ScheduledTransaction) error
	// FindDue lists rows of one kind in status whose due time is at or before now.
	FindDue(ctx context.Context, kind TransactionKind, status TransactionStatus, now time.Time) ([]ScheduledTransaction, error)
	// Transition moves a row from one status to another only if it is still in from.
	Transition(ctx context.Context, tx *gorm.DB, id string, from, to TransactionStatus, at time.Time) (bool, error)
	FindByID(ctx context.Context, id string) (*ScheduledTransaction, error)
}

// SettlementRepository stores scheduled trade settlements.
type SettlementRepository interface {
	Create(ctx context.Context, s *ScheduledSettlement) error
	FindDue(ctx context.Context, status SettlementStatus, now time.Time) ([]ScheduledSettlement, error)
	Transition(ctx context.Context, tx *gorm.DB, id string, from, to SettlementStatus, at time.Time) (bool, error)
	FindByID(ctx context.Context, id string) (*ScheduledSettlement, error)
}

// LoginSessionRepository reads and revokes login sessions.
type LoginSessionRepository interface {
	FindByID(ctx context.Context, id string) (*LoginSession, error)
	RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uint, at time.Time) (int64, error)
}

// Conn is a live connection to one client.
type Conn interface {
	Send(msg PushMessage) error
	Close() error
}

// ConnectionRegistry tracks live connections by user.
type ConnectionRegistry interface {
	Get(userID uint) (Conn, bool)
	Register(userID uint, conn Conn)
	Unregister(userID uint, conn Conn)
	Broadcast(msg PushMessage)
}

// TokenService validates bearer tokens issued by the login service.
type TokenService interface {
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// CasbinEnforcer is the subset of the Casbin enforcer the policy service uses.
type CasbinEnforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
	AddPolicy(params ...interface{}) (bool, error)
}

// PolicyService decides whether a role may call an endpoint.
type PolicyService interface {
	CheckPermission(role, resource, action string) (bool, error)
	// EnsurePolicy adds the rule unless it is already present.
	EnsurePolicy(role, resource, action string) error
}

// AccountRepository reads and writes the account settings changed by verified
// mutations. A nil tx runs against the base connection.
type AccountRepository interface {
	SegmentIDs(ctx context.Context, tx *gorm.DB, names []string) (map[string]uint, error)
	ActiveSegments(ctx context.Context, tx *gorm.DB, userID uint) ([]string, error)
	AddSegments(ctx context.Context, tx *gorm.DB, userID uint, segmentIDs []uint) error
	RemoveSegments(ctx context.Context, tx *gorm.DB, userID uint, segmentIDs []uint) error
	FindDematAccount(ctx context.Context, tx *gorm.DB, id, userID uint) (*DematAccount, error)
	UpdateDematStatus(ctx context.Context, tx *gorm.DB, id uint, status DematStatus, freezeUntil *time.Time, at time.Time) error
	SettlementFrequency(ctx context.Context, tx *gorm.DB, userID uint) (SettlementFrequency, error)
	UpsertSettlementFrequency(ctx context.Context, tx *gorm.DB, userID uint, freq SettlementFrequency, at time.Time) error
}
