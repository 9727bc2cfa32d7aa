package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/backoffice/domain"
	"github.com/you/backoffice/internal/infrastructure/ratelimit"
	"github.com/you/backoffice/internal/infrastructure/repositories"
	"github.com/you/backoffice/internal/metrics"
	"github.com/you/backoffice/internal/mocks"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testEmail = "trader@example.com"

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(repositories.Models()...))
	return db
}

type mutationHarness struct {
	db         *gorm.DB
	mr         *miniredis.Miniredis
	notifier   *mocks.MockNotificationService
	challenges *repositories.ChallengeRepositoryImpl
	accounts   *repositories.AccountRepository
	sessions   *repositories.LoginSessionRepositoryImpl
	audit      *mocks.MockAuditLogger
	metrics    *metrics.Metrics
	deps       MutationDeps
}

func newMutationHarness(t *testing.T) *mutationHarness {
	t.Helper()

	db := setupTestDB(t)
	client, mr := setupTestRedis(t)
	notifier := mocks.NewMockNotificationService()
	m := metrics.New(prometheus.NewRegistry())
	audit := mocks.NewMockAuditLogger()

	otp := NewOTPService(notifier, nil, client, OTPConfig{Length: 6, TTL: 10 * time.Minute}, zap.NewNop(), m)
	challenges := repositories.NewChallengeRepository(client)

	return &mutationHarness{
		db:         db,
		mr:         mr,
		notifier:   notifier,
		challenges: challenges,
		accounts:   repositories.NewAccountRepository(db),
		sessions:   repositories.NewLoginSessionRepository(db),
		audit:      audit,
		metrics:    m,
		deps: MutationDeps{
			Challenges: challenges,
			OTP:        otp,
			Limiter:    ratelimit.NewRedisLimiter(client, 3, 5*time.Minute),
			DB:         db,
			SessionTTL: 10 * time.Minute,
			Logger:     zap.NewNop(),
			Metrics:    m,
			Audit:      audit,
		},
	}
}

func wrongCode(code string) string {
	n, _ := strconv.Atoi(code)
	if n == 999999 {
		return "100000"
	}
	return strconv.Itoa(n + 1)
}

// countingApplier counts invocations and can be told to fail.
type countingApplier struct {
	calls int32
	err   error
}

func (a *countingApplier) Apply(ctx context.Context, tx *gorm.DB, userID uint, p domain.SettlementFrequencyPayload) (int32, error) {
	n := atomic.AddInt32(&a.calls, 1)
	return n, a.err
}

func TestVerifiedMutation_DematFreezeScenario(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, h.db.Create(&repositories.DBDematAccount{ID: 3, UserID: 7, Status: "active"}).Error)
	require.NoError(t, h.db.Create(&[]repositories.DBLoginSession{
		{ID: "ls1", UserID: 7, ExpiresAt: fixed.Add(time.Hour)},
		{ID: "ls2", UserID: 7, ExpiresAt: fixed.Add(time.Hour)},
		{ID: "ls3", UserID: 8, ExpiresAt: fixed.Add(time.Hour)},
	}).Error)

	applier := NewDematFreeze(h.accounts, h.sessions)
	applier.now = func() time.Time { return fixed }
	freeze := NewVerifiedMutation[domain.DematFreezePayload, domain.DematAccount](domain.FeatureDematFreeze, h.deps, applier)

	res, err := freeze.Initiate(ctx, 7, testEmail, domain.DematFreezePayload{DematAccountID: 3, Action: domain.DematFreeze})
	require.NoError(t, err)
	require.True(t, res.RequiresOTP)
	require.NotEmpty(t, res.SessionID)
	code := lastEmailedCode(t, h.notifier)

	// wrong code is rejected but leaves the session usable
	_, err = freeze.Commit(ctx, res.SessionID, 7, wrongCode(code))
	assert.ErrorIs(t, err, domain.ErrOTPInvalid)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	pending, err := h.challenges.Find(ctx, domain.FeatureDematFreeze, res.SessionID)
	require.NoError(t, err)
	assert.False(t, pending.IsUsed)

	acct, err := freeze.Commit(ctx, res.SessionID, 7, code)
	require.NoError(t, err)
	assert.Equal(t, domain.DematFrozen, acct.Status)
	require.NotNil(t, acct.FreezeUntil)
	assert.True(t, acct.FreezeUntil.Equal(fixed.Add(48*time.Hour)))

	stored, err := h.accounts.FindDematAccount(ctx, nil, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.DematFrozen, stored.Status)

	for _, id := range []string{"ls1", "ls2"} {
		s, err := h.sessions.FindByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, s.Active(fixed), "session %s should be revoked", id)
	}
	other, err := h.sessions.FindByID(ctx, "ls3")
	require.NoError(t, err)
	assert.True(t, other.Active(fixed), "other users keep their sessions")

	_, err = freeze.Commit(ctx, res.SessionID, 7, code)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.Equal(t, []domain.AuditEventType{
		domain.MutationInitiatedEvent,
		domain.MutationRejectedEvent,
		domain.MutationCommittedEvent,
		domain.MutationRejectedEvent,
	}, h.audit.Types())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Mutations.WithLabelValues(domain.FeatureDematFreeze, metrics.ResultSuccess)))
}

func TestVerifiedMutation_DematUnfreezeKeepsSessions(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()
	until := time.Now().Add(time.Hour)

	require.NoError(t, h.db.Create(&repositories.DBDematAccount{ID: 3, UserID: 7, Status: "frozen", FreezeUntil: &until}).Error)
	require.NoError(t, h.db.Create(&repositories.DBLoginSession{ID: "ls1", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)}).Error)

	freeze := NewVerifiedMutation[domain.DematFreezePayload, domain.DematAccount](domain.FeatureDematFreeze, h.deps, NewDematFreeze(h.accounts, h.sessions))

	res, err := freeze.Initiate(ctx, 7, testEmail, domain.DematFreezePayload{DematAccountID: 3, Action: domain.DematUnfreeze})
	require.NoError(t, err)

	acct, err := freeze.Commit(ctx, res.SessionID, 7, lastEmailedCode(t, h.notifier))
	require.NoError(t, err)
	assert.Equal(t, domain.DematActive, acct.Status)
	assert.Nil(t, acct.FreezeUntil)

	s, err := h.sessions.FindByID(ctx, "ls1")
	require.NoError(t, err)
	assert.Nil(t, s.RevokedAt)
}

func TestVerifiedMutation_InitiateNoop(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()
	require.NoError(t, h.accounts.UpsertSettlementFrequency(ctx, nil, 7, domain.SettlementMonthly, time.Now()))

	freq := NewVerifiedMutation[domain.SettlementFrequencyPayload, domain.SettlementFrequencyResult](
		domain.FeatureSettlementFrequency, h.deps, NewSettlementFrequencyChange(h.accounts))

	res, err := freq.Initiate(ctx, 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementMonthly})
	require.NoError(t, err)
	assert.False(t, res.RequiresOTP)
	assert.Empty(t, res.SessionID)
	assert.Empty(t, h.notifier.Emails(), "no code is sent for a no-op")
	assert.Empty(t, h.mr.Keys(), "no session or code is stored for a no-op")
	assert.Equal(t, []domain.AuditEventType{domain.MutationNoopEvent}, h.audit.Types())
}

func TestVerifiedMutation_InitiateValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload domain.SettlementFrequencyPayload
		wantErr error
	}{
		{name: "unknown frequency", payload: domain.SettlementFrequencyPayload{Frequency: "weekly"}, wantErr: domain.ErrInvalidPayload},
		{name: "empty frequency", payload: domain.SettlementFrequencyPayload{}, wantErr: domain.ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMutationHarness(t)
			freq := NewVerifiedMutation[domain.SettlementFrequencyPayload, domain.SettlementFrequencyResult](
				domain.FeatureSettlementFrequency, h.deps, NewSettlementFrequencyChange(h.accounts))

			_, err := freq.Initiate(context.Background(), 7, testEmail, tt.payload)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, domain.ErrBadRequest)
			assert.Empty(t, h.mr.Keys())
		})
	}
}

func TestVerifiedMutation_InitiateOTPFailureRemovesSession(t *testing.T) {
	h := newMutationHarness(t)
	h.notifier.SendEmailFunc = func(ctx context.Context, to, subject, body string) error {
		return errors.New("smtp down")
	}
	applier := &countingApplier{}
	m := NewVerifiedMutation[domain.SettlementFrequencyPayload, int32](domain.FeatureSettlementFrequency, h.deps, applier)

	_, err := m.Initiate(context.Background(), 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementQuarterly})

	assert.ErrorIs(t, err, domain.ErrOTPDeliveryFailed)
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.Empty(t, h.mr.Keys())
}

func TestVerifiedMutation_CommitAtMostOnce(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()
	applier := &countingApplier{}
	m := NewVerifiedMutation[domain.SettlementFrequencyPayload, int32](domain.FeatureSettlementFrequency, h.deps, applier)

	res, err := m.Initiate(ctx, 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementQuarterly})
	require.NoError(t, err)
	code := lastEmailedCode(t, h.notifier)

	const workers = 10
	var (
		wg        sync.WaitGroup
		successes int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Commit(ctx, res.SessionID, 7, code)
			if err == nil {
				atomic.AddInt32(&successes, 1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(1), atomic.LoadInt32(&applier.calls))
}

func TestVerifiedMutation_CommitRejections(t *testing.T) {
	tests := []struct {
		name          string
		act           func(t *testing.T, h *mutationHarness, m *VerifiedMutation[domain.SettlementFrequencyPayload, int32], sessionID, code string) error
		expectedError error
		sessionExists bool
	}{
		{
			name: "expired session",
			act: func(t *testing.T, h *mutationHarness, m *VerifiedMutation[domain.SettlementFrequencyPayload, int32], sessionID, code string) error {
				h.mr.FastForward(11 * time.Minute)
				_, err := m.Commit(context.Background(), sessionID, 7, code)
				return err
			},
			expectedError: domain.ErrSessionInvalid,
		},
		{
			name: "unknown session",
			act: func(t *testing.T, h *mutationHarness, m *VerifiedMutation[domain.SettlementFrequencyPayload, int32], sessionID, code string) error {
				_, err := m.Commit(context.Background(), "not-a-session", 7, code)
				return err
			},
			expectedError: domain.ErrSessionInvalid,
			sessionExists: true,
		},
		{
			name: "foreign user burns the session",
			act: func(t *testing.T, h *mutationHarness, m *VerifiedMutation[domain.SettlementFrequencyPayload, int32], sessionID, code string) error {
				_, err := m.Commit(context.Background(), sessionID, 8, code)
				return err
			},
			expectedError: domain.ErrSessionForbidden,
		},
		{
			name: "session of another feature",
			act: func(t *testing.T, h *mutationHarness, m *VerifiedMutation[domain.SettlementFrequencyPayload, int32], sessionID, code string) error {
				other := NewVerifiedMutation[domain.SettlementFrequencyPayload, int32](domain.FeatureSegmentActivation, h.deps, &countingApplier{})
				_, err := other.Commit(context.Background(), sessionID, 7, code)
				return err
			},
			expectedError: domain.ErrSessionInvalid,
			sessionExists: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMutationHarness(t)
			applier := &countingApplier{}
			m := NewVerifiedMutation[domain.SettlementFrequencyPayload, int32](domain.FeatureSettlementFrequency, h.deps, applier)

			res, err := m.Initiate(context.Background(), 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementQuarterly})
			require.NoError(t, err)
			code := lastEmailedCode(t, h.notifier)

			err = tt.act(t, h, m, res.SessionID, code)
			assert.ErrorIs(t, err, tt.expectedError)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
			assert.Equal(t, int32(0), applier.calls)
			assert.Equal(t, tt.sessionExists, h.mr.Exists(domain.FeatureSettlementFrequency+":"+res.SessionID))
		})
	}
}

func TestVerifiedMutation_ApplierFailureBurnsSession(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()
	applier := &countingApplier{err: errors.New("deadlock detected")}
	m := NewVerifiedMutation[domain.SettlementFrequencyPayload, int32](domain.FeatureSettlementFrequency, h.deps, applier)

	res, err := m.Initiate(ctx, 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementQuarterly})
	require.NoError(t, err)
	code := lastEmailedCode(t, h.notifier)

	_, err = m.Commit(ctx, res.SessionID, 7, code)
	assert.ErrorIs(t, err, domain.ErrMutationFailed)
	assert.ErrorIs(t, err, domain.ErrInternal)

	burned, err := h.challenges.Find(ctx, domain.FeatureSettlementFrequency, res.SessionID)
	require.NoError(t, err)
	assert.True(t, burned.IsUsed)

	applier.err = nil
	_, err = m.Commit(ctx, res.SessionID, 7, code)
	assert.ErrorIs(t, err, domain.ErrSessionUsed)
	assert.Equal(t, int32(1), applier.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Mutations.WithLabelValues(domain.FeatureSettlementFrequency, metrics.ResultFailure)))
}

func TestVerifiedMutation_ApplierRollsBack(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()
	require.NoError(t, h.db.Create(&repositories.DBDematAccount{ID: 3, UserID: 7, Status: "active"}).Error)
	require.NoError(t, h.db.Create(&repositories.DBLoginSession{ID: "ls1", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)}).Error)

	sessions := mocks.NewMockLoginSessionRepository()
	sessions.RevokeAllForUserFunc = func(ctx context.Context, tx *gorm.DB, userID uint, at time.Time) (int64, error) {
		return 0, errors.New("revoke failed")
	}
	freeze := NewVerifiedMutation[domain.DematFreezePayload, domain.DematAccount](domain.FeatureDematFreeze, h.deps, NewDematFreeze(h.accounts, sessions))

	res, err := freeze.Initiate(ctx, 7, testEmail, domain.DematFreezePayload{DematAccountID: 3, Action: domain.DematFreeze})
	require.NoError(t, err)

	_, err = freeze.Commit(ctx, res.SessionID, 7, lastEmailedCode(t, h.notifier))
	assert.ErrorIs(t, err, domain.ErrMutationFailed)

	acct, err := h.accounts.FindDematAccount(ctx, nil, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.DematActive, acct.Status, "status change must roll back with the failed revoke")
}

func TestVerifiedMutation_Resend(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()
	m := NewVerifiedMutation[domain.SettlementFrequencyPayload, int32](domain.FeatureSettlementFrequency, h.deps, &countingApplier{})

	res, err := m.Initiate(ctx, 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementQuarterly})
	require.NoError(t, err)
	code := lastEmailedCode(t, h.notifier)

	assert.ErrorIs(t, m.Resend(ctx, res.SessionID, 8), domain.ErrSessionForbidden)
	assert.ErrorIs(t, m.Resend(ctx, "missing", 7), domain.ErrSessionInvalid)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Resend(ctx, res.SessionID, 7), "resend %d", i+1)
		assert.Equal(t, code, lastEmailedCode(t, h.notifier), "resend must deliver the same code")
	}

	err = m.Resend(ctx, res.SessionID, 7)
	assert.ErrorIs(t, err, domain.ErrResendLimit)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Len(t, h.notifier.Emails(), 4)

	h.mr.FastForward(5*time.Minute + time.Second)
	require.NoError(t, m.Resend(ctx, res.SessionID, 7), "limit window elapsed")

	_, err = m.Commit(ctx, res.SessionID, 7, code)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Resend(ctx, res.SessionID, 7), domain.ErrSessionInvalid)
}

func TestVerifiedMutation_CommitResetsResendLimit(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()
	m := NewVerifiedMutation[domain.SettlementFrequencyPayload, int32](domain.FeatureSettlementFrequency, h.deps, &countingApplier{})
	key := resendKey(domain.FeatureSettlementFrequency, 7)

	res, err := m.Initiate(ctx, 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementQuarterly})
	require.NoError(t, err)
	code := lastEmailedCode(t, h.notifier)
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Resend(ctx, res.SessionID, 7))
	}
	require.ErrorIs(t, m.Resend(ctx, res.SessionID, 7), domain.ErrResendLimit)

	_, err = m.Commit(ctx, res.SessionID, 7, wrongCode(code))
	require.Error(t, err)
	assert.True(t, h.mr.Exists(key), "a rejected commit keeps the counter")

	_, err = m.Commit(ctx, res.SessionID, 7, code)
	require.NoError(t, err)
	assert.False(t, h.mr.Exists(key))

	next, err := m.Initiate(ctx, 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementMonthly})
	require.NoError(t, err)
	require.NoError(t, m.Resend(ctx, next.SessionID, 7), "a new session starts with a fresh allowance")
}

func TestVerifiedMutation_CommitSurvivesResetFailure(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()

	limiter := mocks.NewMockResendLimiter(3)
	var resetKeys []string
	limiter.ResetFunc = func(ctx context.Context, key string) error {
		resetKeys = append(resetKeys, key)
		return errors.New("redis unavailable")
	}
	deps := h.deps
	deps.Limiter = limiter
	applier := &countingApplier{}
	m := NewVerifiedMutation[domain.SettlementFrequencyPayload, int32](domain.FeatureSettlementFrequency, deps, applier)

	res, err := m.Initiate(ctx, 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementQuarterly})
	require.NoError(t, err)
	_, err = m.Commit(ctx, res.SessionID, 7, lastEmailedCode(t, h.notifier))
	require.NoError(t, err)

	assert.Equal(t, []string{"resend:settlement-frequency:7"}, resetKeys)
	assert.Equal(t, int32(1), atomic.LoadInt32(&applier.calls))
}

func TestVerifiedMutation_ResendUsedSession(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()
	m := NewVerifiedMutation[domain.SettlementFrequencyPayload, int32](domain.FeatureSettlementFrequency, h.deps, &countingApplier{err: errors.New("boom")})

	res, err := m.Initiate(ctx, 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementQuarterly})
	require.NoError(t, err)
	_, err = m.Commit(ctx, res.SessionID, 7, lastEmailedCode(t, h.notifier))
	require.Error(t, err)

	assert.ErrorIs(t, m.Resend(ctx, res.SessionID, 7), domain.ErrSessionUsed)
}

func TestVerifiedMutation_ResendCollaboratorFailures(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()

	otp := mocks.NewMockOTPService()
	limiter := mocks.NewMockResendLimiter(1)
	deps := h.deps
	deps.OTP = otp
	deps.Limiter = limiter
	m := NewVerifiedMutation[domain.SettlementFrequencyPayload, int32](domain.FeatureSettlementFrequency, deps, &countingApplier{})

	res, err := m.Initiate(ctx, 7, testEmail, domain.SettlementFrequencyPayload{Frequency: domain.SettlementQuarterly})
	require.NoError(t, err)

	otp.ResendExistingOTPFunc = func(ctx context.Context, identifier, otpContext string) error {
		assert.Equal(t, testEmail, identifier)
		assert.Equal(t, domain.FeatureSettlementFrequency, otpContext)
		return domain.ErrOTPDeliveryFailed
	}
	assert.ErrorIs(t, m.Resend(ctx, res.SessionID, 7), domain.ErrOTPDeliveryFailed)
	assert.Equal(t, 1, limiter.Count(resendKey(domain.FeatureSettlementFrequency, 7)), "a failed delivery still counts")
	assert.ErrorIs(t, m.Resend(ctx, res.SessionID, 7), domain.ErrResendLimit)

	limiter.AllowFunc = func(ctx context.Context, key string) (bool, error) { return false, errors.New("redis down") }
	err = m.Resend(ctx, res.SessionID, 7)
	assert.ErrorIs(t, err, domain.ErrInternal)

	out, err := m.Commit(ctx, res.SessionID, 7, "123456")
	require.NoError(t, err)
	assert.Equal(t, int32(1), out)
}

func TestVerifiedMutation_SegmentActivation(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()

	for _, name := range []string{"commodity", "equity", "fno"} {
		require.NoError(t, h.db.Create(&repositories.DBSegment{Name: name}).Error)
	}
	ids, err := h.accounts.SegmentIDs(ctx, nil, []string{"equity"})
	require.NoError(t, err)
	require.NoError(t, h.accounts.AddSegments(ctx, nil, 7, []uint{ids["equity"]}))

	segments := NewVerifiedMutation[domain.SegmentActivationPayload, domain.SegmentActivationResult](
		domain.FeatureSegmentActivation, h.deps, NewSegmentActivation(h.accounts))

	res, err := segments.Initiate(ctx, 7, testEmail, domain.SegmentActivationPayload{Segments: map[string]bool{"equity": true, "fno": false}})
	require.NoError(t, err)
	assert.False(t, res.RequiresOTP, "requested state already matches")

	_, err = segments.Initiate(ctx, 7, testEmail, domain.SegmentActivationPayload{Segments: map[string]bool{"crypto": true}})
	assert.ErrorIs(t, err, domain.ErrUnknownSegment)
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	res, err = segments.Initiate(ctx, 7, testEmail, domain.SegmentActivationPayload{Segments: map[string]bool{"equity": false, "fno": true, "commodity": true}})
	require.NoError(t, err)
	require.True(t, res.RequiresOTP)

	out, err := segments.Commit(ctx, res.SessionID, 7, lastEmailedCode(t, h.notifier))
	require.NoError(t, err)
	assert.Equal(t, []string{"commodity", "fno"}, out.ActiveSegments)

	active, err := h.accounts.ActiveSegments(ctx, nil, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"commodity", "fno"}, active)
}

func TestVerifiedMutation_SettlementFrequency(t *testing.T) {
	h := newMutationHarness(t)
	ctx := context.Background()
	freq := NewVerifiedMutation[domain.SettlementFrequencyPayload, domain.SettlementFrequencyResult](
		domain.FeatureSettlementFrequency, h.deps, NewSettlementFrequencyChange(h.accounts))

	for _, want := range []domain.SettlementFrequency{domain.SettlementQuarterly, domain.SettlementMonthly} {
		res, err := freq.Initiate(ctx, 7, testEmail, domain.SettlementFrequencyPayload{Frequency: want})
		require.NoError(t, err)
		require.True(t, res.RequiresOTP)

		out, err := freq.Commit(ctx, res.SessionID, 7, lastEmailedCode(t, h.notifier))
		require.NoError(t, err)
		assert.Equal(t, want, out.Frequency)

		stored, err := h.accounts.SettlementFrequency(ctx, nil, 7)
		require.NoError(t, err)
		assert.Equal(t, want, stored)
	}
}
