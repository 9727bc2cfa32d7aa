package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/you/backoffice/domain"
	"github.com/you/backoffice/internal/metrics"
	"github.com/you/backoffice/internal/pkg/validate"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MutationDeps are the collaborators shared by every verified mutation.
type MutationDeps struct {
	Challenges domain.ChallengeStore
	OTP        domain.OTPService
	Limiter    domain.ResendLimiter
	DB         *gorm.DB
	SessionTTL time.Duration
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Audit      domain.AuditLogger
}

// VerifiedMutation guards one feature's account change behind a one-time code.
// A change is applied at most once per challenge: the challenge is marked used
// before the change runs and is never reopened, even if the change fails.
type VerifiedMutation[P any, R any] struct {
	feature string
	deps    MutationDeps
	applier domain.Applier[P, R]
	noop    domain.NoopDetector[P]
	logger  *zap.Logger
}

// NewVerifiedMutation binds an applier to a feature name. If the applier also
// implements domain.NoopDetector, initiate skips changes already in effect.
func NewVerifiedMutation[P any, R any](feature string, deps MutationDeps, applier domain.Applier[P, R]) *VerifiedMutation[P, R] {
	m := &VerifiedMutation[P, R]{
		feature: feature,
		deps:    deps,
		applier: applier,
		logger:  deps.Logger.With(zap.String("feature", feature)),
	}
	if d, ok := any(applier).(domain.NoopDetector[P]); ok {
		m.noop = d
	}
	return m
}

// Feature returns the feature name, which is also the OTP context.
func (m *VerifiedMutation[P, R]) Feature() string { return m.feature }

// Initiate validates the payload, opens a challenge and sends its code to identifier.
func (m *VerifiedMutation[P, R]) Initiate(ctx context.Context, userID uint, identifier string, payload P) (*domain.InitiateResult, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, domain.WithCause(domain.ErrInvalidPayload, err)
	}

	if m.noop != nil {
		noop, err := m.noop.IsNoop(ctx, userID, payload)
		if err != nil {
			return nil, domain.Internal(err)
		}
		if noop {
			m.deps.Metrics.IncMutation(m.feature, metrics.ResultNoop)
			m.audit(ctx, domain.NewAuditEvent(domain.MutationNoopEvent, userID).WithSession(m.feature, ""))
			return &domain.InitiateResult{RequiresOTP: false}, nil
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("encode payload: %w", err))
	}

	challenge := &domain.Challenge{
		ID:         uuid.NewString(),
		Feature:    m.feature,
		UserID:     userID,
		Identifier: identifier,
		Payload:    raw,
		CreatedAt:  time.Now(),
	}
	if err := m.deps.Challenges.Create(ctx, challenge, m.deps.SessionTTL); err != nil {
		return nil, domain.Internal(err)
	}

	if err := m.deps.OTP.SendOTP(ctx, identifier, m.feature); err != nil {
		if delErr := m.deps.Challenges.Delete(ctx, m.feature, challenge.ID); delErr != nil {
			m.logger.Warn("failed to remove challenge after otp failure", zap.String("session_id", challenge.ID), zap.Error(delErr))
		}
		return nil, err
	}

	m.audit(ctx, domain.NewAuditEvent(domain.MutationInitiatedEvent, userID).WithSession(m.feature, challenge.ID))
	return &domain.InitiateResult{SessionID: challenge.ID, RequiresOTP: true}, nil
}

// Resend re-delivers the challenge's current code, at most ResendLimit times per window.
func (m *VerifiedMutation[P, R]) Resend(ctx context.Context, sessionID string, userID uint) error {
	challenge, err := m.deps.Challenges.Find(ctx, m.feature, sessionID)
	if err != nil {
		return m.reject(ctx, userID, sessionID, err)
	}
	if challenge.IsUsed {
		return m.reject(ctx, userID, sessionID, domain.ErrSessionUsed)
	}
	if challenge.UserID != userID {
		return m.reject(ctx, userID, sessionID, domain.ErrSessionForbidden)
	}

	allowed, err := m.deps.Limiter.Allow(ctx, resendKey(m.feature, userID))
	if err != nil {
		return domain.Internal(err)
	}
	if !allowed {
		return m.reject(ctx, userID, sessionID, domain.ErrResendLimit)
	}

	if err := m.deps.OTP.ResendExistingOTP(ctx, challenge.Identifier, m.feature); err != nil {
		return err
	}

	m.audit(ctx, domain.NewAuditEvent(domain.MutationResentEvent, userID).WithSession(m.feature, sessionID))
	return nil
}

// Commit checks code against the challenge and, on success, applies the change
// inside one database transaction. A wrong code leaves the challenge open.
func (m *VerifiedMutation[P, R]) Commit(ctx context.Context, sessionID string, userID uint, code string) (R, error) {
	var zero R

	challenge, err := m.deps.Challenges.Find(ctx, m.feature, sessionID)
	if err != nil {
		return zero, m.reject(ctx, userID, sessionID, err)
	}
	if challenge.IsUsed {
		return zero, m.reject(ctx, userID, sessionID, domain.ErrSessionUsed)
	}
	if challenge.UserID != userID {
		if delErr := m.deps.Challenges.Delete(ctx, m.feature, sessionID); delErr != nil {
			m.logger.Warn("failed to remove hijacked challenge", zap.String("session_id", sessionID), zap.Error(delErr))
		}
		return zero, m.reject(ctx, userID, sessionID, domain.ErrSessionForbidden)
	}

	if err := m.deps.OTP.VerifyOTP(ctx, challenge.Identifier, m.feature, code); err != nil {
		return zero, m.reject(ctx, userID, sessionID, err)
	}

	marked, err := m.deps.Challenges.MarkUsed(ctx, m.feature, sessionID)
	if err != nil {
		return zero, domain.Internal(err)
	}
	if !marked {
		return zero, m.reject(ctx, userID, sessionID, domain.ErrSessionUsed)
	}

	var payload P
	if err := json.Unmarshal(challenge.Payload, &payload); err != nil {
		return zero, m.fail(ctx, userID, sessionID, fmt.Errorf("decode payload: %w", err))
	}

	var result R
	err = m.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applyErr error
		result, applyErr = m.applier.Apply(ctx, tx, userID, payload)
		return applyErr
	})
	if err != nil {
		return zero, m.fail(ctx, userID, sessionID, err)
	}

	if err := m.deps.Challenges.Delete(ctx, m.feature, sessionID); err != nil {
		m.logger.Warn("failed to remove committed challenge", zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := m.deps.Limiter.Reset(ctx, resendKey(m.feature, userID)); err != nil {
		m.logger.Warn("failed to reset resend counter", zap.Uint("user_id", userID), zap.Error(err))
	}

	m.deps.Metrics.IncMutation(m.feature, metrics.ResultSuccess)
	m.audit(ctx, domain.NewAuditEvent(domain.MutationCommittedEvent, userID).WithSession(m.feature, sessionID))
	return result, nil
}

func (m *VerifiedMutation[P, R]) reject(ctx context.Context, userID uint, sessionID string, err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		return domain.Internal(err)
	}
	if errors.Is(err, domain.ErrInternal) {
		return err
	}
	m.deps.Metrics.IncMutation(m.feature, metrics.ResultRejected)
	m.audit(ctx, domain.NewAuditEvent(domain.MutationRejectedEvent, userID).WithSession(m.feature, sessionID).WithError(err))
	return err
}

// fail reports a change that could not be applied after its challenge was
// burned. Classified errors keep their kind; anything else is internal.
func (m *VerifiedMutation[P, R]) fail(ctx context.Context, userID uint, sessionID string, err error) error {
	m.logger.Error("verified mutation failed",
		zap.Uint("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Error(err),
	)
	m.deps.Metrics.IncMutation(m.feature, metrics.ResultFailure)
	m.audit(ctx, domain.NewAuditEvent(domain.MutationFailedEvent, userID).WithSession(m.feature, sessionID).WithError(err))

	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.WithCause(domain.ErrMutationFailed, err)
}

func (m *VerifiedMutation[P, R]) audit(ctx context.Context, event *domain.AuditEvent) {
	if m.deps.Audit != nil {
		m.deps.Audit.LogEvent(ctx, event)
	}
}

func resendKey(feature string, userID uint) string {
	return fmt.Sprintf("resend:%s:%d", feature, userID)
}
