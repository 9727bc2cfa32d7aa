package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Verified mutation events
	MutationInitiatedEvent AuditEventType = "MUTATION_INITIATED"
	MutationNoopEvent      AuditEventType = "MUTATION_NOOP"
	MutationResentEvent    AuditEventType = "MUTATION_OTP_RESENT"
	MutationCommittedEvent AuditEventType = "MUTATION_COMMITTED"
	MutationRejectedEvent  AuditEventType = "MUTATION_REJECTED"
	MutationFailedEvent    AuditEventType = "MUTATION_FAILED"

	// Scheduler events
	SweepRunEvent         AuditEventType = "SWEEP_RUN"
	WithdrawalQueuedEvent AuditEventType = "WITHDRAWAL_QUEUED"
	SettlementQueuedEvent AuditEventType = "SETTLEMENT_QUEUED"
)

// AuditEvent represents a business event that occurred in the system
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	UserID    uint                   `json:"user_id"`
	Feature   string                 `json:"feature,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger records audit events
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent)
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, userID uint) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithSession sets the feature and challenge session id
func (e *AuditEvent) WithSession(feature, sessionID string) *AuditEvent {
	e.Feature = feature
	e.SessionID = sessionID
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}
