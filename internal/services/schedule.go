package services

import (
	"time"

	"github.com/you/backoffice/domain"
)

// Window labels shown to users next to a due time.
const (
	SettlementCycleLabel   = "Settlement cycle (00:00-07:00)"
	MiddayWithdrawalLabel  = "Midday processing window (12:00-14:00)"
	EveningWithdrawalLabel = "Evening processing window (18:00-20:00)"
)

// The window predicates and next-time calculators read only the wall-clock
// hour of t. Callers pass t in the server's configured location.

// IsWithinSettlementWindow reports whether t falls in [00:00, 07:00).
func IsWithinSettlementWindow(t time.Time) bool {
	return t.Hour() < 7
}

// IsWithinWithdrawalRequestWindow reports whether t falls in [07:00, 18:00).
func IsWithinWithdrawalRequestWindow(t time.Time) bool {
	h := t.Hour()
	return h >= 7 && h < 18
}

// IsWithinWithdrawalProcessingWindow reports whether t falls in
// [12:00, 14:00) or [18:00, 20:00).
func IsWithinWithdrawalProcessingWindow(t time.Time) bool {
	h := t.Hour()
	return (h >= 12 && h < 14) || (h >= 18 && h < 20)
}

// NextSettlementCycle is midnight today before 07:00, else midnight tomorrow.
func NextSettlementCycle(t time.Time) domain.ScheduledTime {
	y, m, d := t.Date()
	if t.Hour() >= 7 {
		d++
	}
	return domain.ScheduledTime{
		Time:  time.Date(y, m, d, 0, 0, 0, 0, t.Location()),
		Label: SettlementCycleLabel,
	}
}

// NextWithdrawalProcessingTime is noon today before 12:00, 18:00 today before
// 18:00, else noon tomorrow.
func NextWithdrawalProcessingTime(t time.Time) domain.ScheduledTime {
	y, m, d := t.Date()
	switch h := t.Hour(); {
	case h < 12:
		return domain.ScheduledTime{Time: time.Date(y, m, d, 12, 0, 0, 0, t.Location()), Label: MiddayWithdrawalLabel}
	case h < 18:
		return domain.ScheduledTime{Time: time.Date(y, m, d, 18, 0, 0, 0, t.Location()), Label: EveningWithdrawalLabel}
	default:
		return domain.ScheduledTime{Time: time.Date(y, m, d+1, 12, 0, 0, 0, t.Location()), Label: MiddayWithdrawalLabel}
	}
}

// WindowStatus is a snapshot of every window at one instant.
type WindowStatus struct {
	Now                        time.Time            `json:"now"`
	SettlementWindowOpen       bool                 `json:"settlement_window_open"`
	WithdrawalRequestOpen      bool                 `json:"withdrawal_request_open"`
	WithdrawalProcessingOpen   bool                 `json:"withdrawal_processing_open"`
	NextSettlementCycle        domain.ScheduledTime `json:"next_settlement_cycle"`
	NextWithdrawalProcessingAt domain.ScheduledTime `json:"next_withdrawal_processing"`
}

// Windows evaluates every window at t.
func Windows(t time.Time) WindowStatus {
	return WindowStatus{
		Now:                        t,
		SettlementWindowOpen:       IsWithinSettlementWindow(t),
		WithdrawalRequestOpen:      IsWithinWithdrawalRequestWindow(t),
		WithdrawalProcessingOpen:   IsWithinWithdrawalProcessingWindow(t),
		NextSettlementCycle:        NextSettlementCycle(t),
		NextWithdrawalProcessingAt: NextWithdrawalProcessingTime(t),
	}
}
