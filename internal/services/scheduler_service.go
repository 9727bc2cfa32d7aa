package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/you/backoffice/domain"
	"github.com/you/backoffice/internal/metrics"
	"github.com/you/backoffice/internal/pkg/id"
	"github.com/you/backoffice/internal/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Push message types.
const (
	MessageWithdrawalStatus    = "withdrawal_status"
	MessageDepositStatus       = "deposit_status"
	MessageSettlementStatus    = "settlement_status"
	MessageSettlementScheduled = "settlement_scheduled"
)

const (
	kindWithdrawal = "withdrawal"
	kindDeposit    = "deposit"
	kindSettlement = "settlement"
)

// errNotClaimed marks a row another sweep moved first.
var errNotClaimed = errors.New("row already claimed")

// SchedulerService queues withdrawals and settlements with window-aligned due
// times and sweeps due rows forward inside their processing windows.
type SchedulerService struct {
	db          *gorm.DB
	txns        domain.TransactionRepository
	settlements domain.SettlementRepository
	registry    domain.ConnectionRegistry
	logger      *zap.Logger
	metrics     *metrics.Metrics
	audit       domain.AuditLogger
	loc         *time.Location
	now         func() time.Time
}

// NewSchedulerService creates the scheduler. Windows are evaluated in loc.
func NewSchedulerService(db *gorm.DB, txns domain.TransactionRepository, settlements domain.SettlementRepository,
	registry domain.ConnectionRegistry, loc *time.Location, logger *zap.Logger, m *metrics.Metrics, audit domain.AuditLogger) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	return &SchedulerService{
		db:          db,
		txns:        txns,
		settlements: settlements,
		registry:    registry,
		logger:      logger,
		metrics:     m,
		audit:       audit,
		loc:         loc,
		now:         time.Now,
	}
}

// Now returns the current time in the server's location.
func (s *SchedulerService) Now() time.Time {
	return s.now().In(s.loc)
}

// Windows reports the current state of every window.
func (s *SchedulerService) Windows() WindowStatus {
	return Windows(s.Now())
}

// QueueWithdrawal stamps txn with the next withdrawal processing time, notes
// the window in its remarks and stores it as pending.
func (s *SchedulerService) QueueWithdrawal(ctx context.Context, txn *domain.ScheduledTransaction) error {
	if !txn.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	next := NextWithdrawalProcessingTime(s.Now())

	if txn.ID == "" {
		txn.ID = id.New()
	}
	txn.Kind = domain.TransactionWithdrawal
	txn.Status = domain.TransactionPending
	txn.ScheduledProcessingTime = next.Time
	txn.Remarks = appendRemark(txn.Remarks,
		fmt.Sprintf("Scheduled for the %s on %s", next.Label, next.Time.Format("02 Jan 2006 15:04")))

	if err := s.txns.Create(ctx, txn); err != nil {
		return domain.Internal(fmt.Errorf("queue withdrawal: %w", err))
	}

	s.logEvent(ctx, domain.NewAuditEvent(domain.WithdrawalQueuedEvent, txn.UserID).
		WithMetadata("transaction_id", txn.ID).
		WithMetadata("due", next.Time))
	return nil
}

// RequestWithdrawal accepts a user's withdrawal only inside the request window.
func (s *SchedulerService) RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal) (*domain.ScheduledTransaction, error) {
	if !IsWithinWithdrawalRequestWindow(s.Now()) {
		return nil, domain.ErrOutsideWindow
	}
	txn := &domain.ScheduledTransaction{UserID: userID, Amount: amount}
	if err := s.QueueWithdrawal(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// QueueDeposit stores a pending deposit that is due immediately. SweepDeposits
// picks it up on the next run.
func (s *SchedulerService) QueueDeposit(ctx context.Context, userID uint, amount decimal.Decimal, remarks string) (*domain.ScheduledTransaction, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	txn := &domain.ScheduledTransaction{
		ID:                      id.New(),
		UserID:                  userID,
		Kind:                    domain.TransactionDeposit,
		Amount:                  amount,
		Status:                  domain.TransactionPending,
		ScheduledProcessingTime: s.Now(),
		Remarks:                 remarks,
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		return nil, domain.Internal(fmt.Errorf("queue deposit: %w", err))
	}
	return txn, nil
}

// QueueSettlement schedules an executed order for the next settlement cycle
// and tells its owner when it will settle.
func (s *SchedulerService) QueueSettlement(ctx context.Context, order domain.Order) (*domain.ScheduledSettlement, error) {
	if !order.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	next := NextSettlementCycle(s.Now())
	settlement := &domain.ScheduledSettlement{
		ID:                      id.New(),
		OrderID:                 order.ID,
		UserID:                  order.UserID,
		Amount:                  order.Amount,
		Status:                  domain.SettlementScheduled,
		ScheduledSettlementTime: next.Time,
	}
	if err := s.settlements.Create(ctx, settlement); err != nil {
		return nil, domain.Internal(fmt.Errorf("queue settlement for order %s: %w", order.ID, err))
	}

	realtime.Push(s.registry, s.logger, order.UserID, domain.PushMessage{
		Type: MessageSettlementScheduled,
		Data: map[string]interface{}{
			"settlement_id": settlement.ID,
			"order_id":      order.ID,
			"settles_at":    next.Time,
			"label":         next.Label,
		},
	})
	s.logEvent(ctx, domain.NewAuditEvent(domain.SettlementQueuedEvent, order.UserID).
		WithMetadata("settlement_id", settlement.ID).
		WithMetadata("order_id", order.ID))
	return settlement, nil
}

// SweepWithdrawals moves due pending withdrawals to processing. Outside the
// processing window it does nothing and returns no rows.
func (s *SchedulerService) SweepWithdrawals(ctx context.Context) ([]domain.ScheduledTransaction, error) {
	now := s.Now()
	if !IsWithinWithdrawalProcessingWindow(now) {
		s.logger.Info("withdrawal sweep skipped: outside processing window", zap.Time("now", now))
		return []domain.ScheduledTransaction{}, nil
	}
	return s.sweepTransactions(ctx, domain.TransactionWithdrawal, now)
}

// SweepDeposits moves due pending deposits to processing. Deposits have no
// processing window.
func (s *SchedulerService) SweepDeposits(ctx context.Context) ([]domain.ScheduledTransaction, error) {
	return s.sweepTransactions(ctx, domain.TransactionDeposit, s.Now())
}

func (s *SchedulerService) sweepTransactions(ctx context.Context, kind domain.TransactionKind, now time.Time) ([]domain.ScheduledTransaction, error) {
	label, msgType := transactionLabels(kind)

	due, err := s.txns.FindDue(ctx, kind, domain.TransactionPending, now)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("find due %ss: %w", label, err))
	}

	moved := make([]domain.ScheduledTransaction, 0, len(due))
	for _, txn := range due {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ok, err := s.txns.Transition(ctx, tx, txn.ID, domain.TransactionPending, domain.TransactionProcessing, now)
			if err != nil {
				return err
			}
			if !ok {
				return errNotClaimed
			}
			return nil
		})
		if !s.rowOutcome(label, txn.ID, err) {
			continue
		}

		txn.Status = domain.TransactionProcessing
		txn.UpdatedAt = now
		moved = append(moved, txn)
		realtime.Push(s.registry, s.logger, txn.UserID, domain.PushMessage{Type: msgType, Data: txn})
	}

	s.logSweep(ctx, label, len(due), len(moved))
	return moved, nil
}

// SweepSettlements moves due scheduled settlements to processing. Outside the
// settlement window it does nothing and returns no rows.
func (s *SchedulerService) SweepSettlements(ctx context.Context) ([]domain.ScheduledSettlement, error) {
	now := s.Now()
	if !IsWithinSettlementWindow(now) {
		s.logger.Info("settlement sweep skipped: outside settlement window", zap.Time("now", now))
		return []domain.ScheduledSettlement{}, nil
	}

	due, err := s.settlements.FindDue(ctx, domain.SettlementScheduled, now)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("find due settlements: %w", err))
	}

	moved := make([]domain.ScheduledSettlement, 0, len(due))
	for _, st := range due {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ok, err := s.settlements.Transition(ctx, tx, st.ID, domain.SettlementScheduled, domain.SettlementProcessing, now)
			if err != nil {
				return err
			}
			if !ok {
				return errNotClaimed
			}
			return nil
		})
		if !s.rowOutcome(kindSettlement, st.ID, err) {
			continue
		}

		st.Status = domain.SettlementProcessing
		st.UpdatedAt = now
		moved = append(moved, st)
		realtime.Push(s.registry, s.logger, st.UserID, domain.PushMessage{Type: MessageSettlementStatus, Data: st})
	}

	s.logSweep(ctx, kindSettlement, len(due), len(moved))
	return moved, nil
}

// CompleteWithdrawal finishes a processing withdrawal as completed or failed.
func (s *SchedulerService) CompleteWithdrawal(ctx context.Context, txnID string, succeeded bool) (*domain.ScheduledTransaction, error) {
	return s.completeTransaction(ctx, domain.TransactionWithdrawal, txnID, succeeded)
}

// CompleteDeposit finishes a processing deposit as completed or failed.
func (s *SchedulerService) CompleteDeposit(ctx context.Context, txnID string, succeeded bool) (*domain.ScheduledTransaction, error) {
	return s.completeTransaction(ctx, domain.TransactionDeposit, txnID, succeeded)
}

func (s *SchedulerService) completeTransaction(ctx context.Context, kind domain.TransactionKind, txnID string, succeeded bool) (*domain.ScheduledTransaction, error) {
	current, err := s.txns.FindByID(ctx, txnID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrRowNotClaimable
	}
	if err != nil {
		return nil, domain.Internal(err)
	}
	if current.Kind != kind {
		return nil, domain.ErrRowNotClaimable
	}

	to := domain.TransactionFailed
	if succeeded {
		to = domain.TransactionCompleted
	}
	ok, err := s.txns.Transition(ctx, nil, txnID, domain.TransactionProcessing, to, s.Now())
	if err != nil {
		return nil, domain.Internal(err)
	}
	if !ok {
		return nil, domain.ErrRowNotClaimable
	}

	txn, err := s.txns.FindByID(ctx, txnID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	_, msgType := transactionLabels(kind)
	realtime.Push(s.registry, s.logger, txn.UserID, domain.PushMessage{Type: msgType, Data: txn})
	return txn, nil
}

// CompleteSettlement finishes a processing settlement as completed or failed.
func (s *SchedulerService) CompleteSettlement(ctx context.Context, settlementID string, succeeded bool) (*domain.ScheduledSettlement, error) {
	to := domain.SettlementFailed
	if succeeded {
		to = domain.SettlementCompleted
	}
	ok, err := s.settlements.Transition(ctx, nil, settlementID, domain.SettlementProcessing, to, s.Now())
	if err != nil {
		return nil, domain.Internal(err)
	}
	if !ok {
		return nil, domain.ErrRowNotClaimable
	}

	st, err := s.settlements.FindByID(ctx, settlementID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	realtime.Push(s.registry, s.logger, st.UserID, domain.PushMessage{Type: MessageSettlementStatus, Data: st})
	return st, nil
}

// Run sweeps every queue each interval until ctx is cancelled. The withdrawal
// and settlement sweeps gate themselves on their windows.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("sweep runner started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep runner stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepDeposits(ctx); err != nil {
				s.logger.Error("deposit sweep failed", zap.Error(err))
			}
			if _, err := s.SweepWithdrawals(ctx); err != nil {
				s.logger.Error("withdrawal sweep failed", zap.Error(err))
			}
			if _, err := s.SweepSettlements(ctx); err != nil {
				s.logger.Error("settlement sweep failed", zap.Error(err))
			}
		}
	}
}

// rowOutcome records the result of one row and reports whether it moved.
func (s *SchedulerService) rowOutcome(kind, rowID string, err error) bool {
	switch {
	case err == nil:
		s.metrics.IncSweepRow(kind, metrics.ResultSuccess)
		return true
	case errors.Is(err, errNotClaimed):
		s.logger.Debug("sweep row already claimed", zap.String("kind", kind), zap.String("id", rowID))
		s.metrics.IncSweepRow(kind, metrics.ResultSkipped)
	default:
		s.logger.Error("sweep row failed", zap.String("kind", kind), zap.String("id", rowID), zap.Error(err))
		s.metrics.IncSweepRow(kind, metrics.ResultFailure)
	}
	return false
}

func (s *SchedulerService) logSweep(ctx context.Context, kind string, due, moved int) {
	s.logger.Info("sweep finished", zap.String("kind", kind), zap.Int("due", due), zap.Int("moved", moved))
	s.logEvent(ctx, domain.NewAuditEvent(domain.SweepRunEvent, 0).
		WithMetadata("kind", kind).
		WithMetadata("due", due).
		WithMetadata("moved", moved))
}

func (s *SchedulerService) logEvent(ctx context.Context, event *domain.AuditEvent) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, event)
	}
}

// transactionLabels returns the metric label and push message type for kind.
func transactionLabels(kind domain.TransactionKind) (string, string) {
	if kind == domain.TransactionDeposit {
		return kindDeposit, MessageDepositStatus
	}
	return kindWithdrawal, MessageWithdrawalStatus
}

func appendRemark(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
