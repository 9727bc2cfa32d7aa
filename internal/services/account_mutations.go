package services

import (
	"context"
	"sort"
	"time"

	"github.com/you/backoffice/domain"
	"gorm.io/gorm"
)

// DematFreezePeriod is how long a freeze requested by the user lasts.
const DematFreezePeriod = 48 * time.Hour

// SegmentActivation toggles the user's trading segment memberships.
type SegmentActivation struct {
	accounts domain.AccountRepository
}

func NewSegmentActivation(accounts domain.AccountRepository) *SegmentActivation {
	return &SegmentActivation{accounts: accounts}
}

// IsNoop reports whether every requested segment is already in the requested
// state. Unknown segment names are rejected here so no code is sent for them.
func (a *SegmentActivation) IsNoop(ctx context.Context, userID uint, p domain.SegmentActivationPayload) (bool, error) {
	if _, err := a.resolve(ctx, nil, p); err != nil {
		return false, err
	}
	active, err := a.accounts.ActiveSegments(ctx, nil, userID)
	if err != nil {
		return false, err
	}
	current := toSet(active)
	for name, want := range p.Segments {
		if current[name] != want {
			return false, nil
		}
	}
	return true, nil
}

// Apply diffs the request against current membership and writes only the changes.
func (a *SegmentActivation) Apply(ctx context.Context, tx *gorm.DB, userID uint, p domain.SegmentActivationPayload) (domain.SegmentActivationResult, error) {
	ids, err := a.resolve(ctx, tx, p)
	if err != nil {
		return domain.SegmentActivationResult{}, err
	}
	active, err := a.accounts.ActiveSegments(ctx, tx, userID)
	if err != nil {
		return domain.SegmentActivationResult{}, err
	}
	current := toSet(active)

	var add, remove []uint
	for name, want := range p.Segments {
		switch {
		case want && !current[name]:
			add = append(add, ids[name])
		case !want && current[name]:
			remove = append(remove, ids[name])
		}
	}
	sort.Slice(add, func(i, j int) bool { return add[i] < add[j] })
	sort.Slice(remove, func(i, j int) bool { return remove[i] < remove[j] })

	if err := a.accounts.AddSegments(ctx, tx, userID, add); err != nil {
		return domain.SegmentActivationResult{}, err
	}
	if err := a.accounts.RemoveSegments(ctx, tx, userID, remove); err != nil {
		return domain.SegmentActivationResult{}, err
	}

	after, err := a.accounts.ActiveSegments(ctx, tx, userID)
	if err != nil {
		return domain.SegmentActivationResult{}, err
	}
	return domain.SegmentActivationResult{ActiveSegments: after}, nil
}

func (a *SegmentActivation) resolve(ctx context.Context, tx *gorm.DB, p domain.SegmentActivationPayload) (map[string]uint, error) {
	names := make([]string, 0, len(p.Segments))
	for name := range p.Segments {
		names = append(names, name)
	}
	ids, err := a.accounts.SegmentIDs(ctx, tx, names)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(names) {
		return nil, domain.ErrUnknownSegment
	}
	return ids, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// DematFreeze freezes or unfreezes a demat account. Freezing also logs the
// user out everywhere.
type DematFreeze struct {
	accounts domain.AccountRepository
	sessions domain.LoginSessionRepository
	now      func() time.Time
}

func NewDematFreeze(accounts domain.AccountRepository, sessions domain.LoginSessionRepository) *DematFreeze {
	return &DematFreeze{accounts: accounts, sessions: sessions, now: time.Now}
}

// IsNoop reports whether the account is already in the requested state.
func (d *DematFreeze) IsNoop(ctx context.Context, userID uint, p domain.DematFreezePayload) (bool, error) {
	acct, err := d.accounts.FindDematAccount(ctx, nil, p.DematAccountID, userID)
	if err != nil {
		return false, err
	}
	return acct.Status == p.Action.TargetStatus(), nil
}

// Apply implements domain.Applier
func (d *DematFreeze) Apply(ctx context.Context, tx *gorm.DB, userID uint, p domain.DematFreezePayload) (domain.DematAccount, error) {
	acct, err := d.accounts.FindDematAccount(ctx, tx, p.DematAccountID, userID)
	if err != nil {
		return domain.DematAccount{}, err
	}

	now := d.now()
	acct.Status = p.Action.TargetStatus()
	acct.FreezeUntil = nil
	if acct.Status == domain.DematFrozen {
		until := now.Add(DematFreezePeriod)
		acct.FreezeUntil = &until
	}

	if err := d.accounts.UpdateDematStatus(ctx, tx, acct.ID, acct.Status, acct.FreezeUntil, now); err != nil {
		return domain.DematAccount{}, err
	}
	if acct.Status == domain.DematFrozen {
		if _, err := d.sessions.RevokeAllForUser(ctx, tx, userID, now); err != nil {
			return domain.DematAccount{}, err
		}
	}
	return *acct, nil
}

// SettlementFrequencyChange stores the user's running-account settlement frequency.
type SettlementFrequencyChange struct {
	accounts domain.AccountRepository
	now      func() time.Time
}

func NewSettlementFrequencyChange(accounts domain.AccountRepository) *SettlementFrequencyChange {
	return &SettlementFrequencyChange{accounts: accounts, now: time.Now}
}

// IsNoop implements domain.NoopDetector
func (s *SettlementFrequencyChange) IsNoop(ctx context.Context, userID uint, p domain.SettlementFrequencyPayload) (bool, error) {
	current, err := s.accounts.SettlementFrequency(ctx, nil, userID)
	if err != nil {
		return false, err
	}
	return current == p.Frequency, nil
}

// Apply implements domain.Applier
func (s *SettlementFrequencyChange) Apply(ctx context.Context, tx *gorm.DB, userID uint, p domain.SettlementFrequencyPayload) (domain.SettlementFrequencyResult, error) {
	if err := s.accounts.UpsertSettlementFrequency(ctx, tx, userID, p.Frequency, s.now()); err != nil {
		return domain.SettlementFrequencyResult{}, err
	}
	return domain.SettlementFrequencyResult{Frequency: p.Frequency}, nil
}

var (
	_ domain.Applier[domain.SegmentActivationPayload, domain.SegmentActivationResult]     = (*SegmentActivation)(nil)
	_ domain.NoopDetector[domain.SegmentActivationPayload]                                = (*SegmentActivation)(nil)
	_ domain.Applier[domain.DematFreezePayload, domain.DematAccount]                      = (*DematFreeze)(nil)
	_ domain.NoopDetector[domain.DematFreezePayload]                                      = (*DematFreeze)(nil)
	_ domain.Applier[domain.SettlementFrequencyPayload, domain.SettlementFrequencyResult] = (*SettlementFrequencyChange)(nil)
	_ domain.NoopDetector[domain.SettlementFrequencyPayload]                              = (*SettlementFrequencyChange)(nil)
)
