package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"cineseat/internal/layouts"
	"cineseat/internal/pricing"
	"cineseat/internal/seats"
	"cineseat/internal/sessions"
	"cineseat/internal/shared/config"
	"cineseat/pkg/logger"

	"github.com/google/uuid"
)

type TxPolicy string

const (
	// TxPolicyAuto runs without a transaction when the database cannot provide one.
	TxPolicyAuto TxPolicy = "auto"
	// TxPolicyRequired refuses to run without a transaction.
	TxPolicyRequired TxPolicy = "required"
)

func ParseTxPolicy(s string) (TxPolicy, error) {
	switch TxPolicy(s) {
	case TxPolicyAuto, TxPolicyRequired:
		return TxPolicy(s), nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

type Options struct {
	DryRun bool
	// TxPolicy falls back to the configured policy when empty.
	TxPolicy TxPolicy
}

type BatchOptions struct {
	BatchSize int
	// Limit caps the number of sessions visited; zero visits all.
	Limit    int
	DryRun   bool
	TxPolicy TxPolicy
}

// PriceSource supplies the price rules seat prices are resolved from.
type PriceSource interface {
	ActiveRules(ctx context.Context) ([]pricing.PriceRule, error)
}

type Engine struct {
	store    Store
	prices   PriceSource
	cfg      config.ReconcileConfig
	location *time.Location
	log      *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine builds an engine. prices may be nil, in which case session prices apply.
func NewEngine(store Store, prices PriceSource, cfg *config.Config) *Engine {
	rc := cfg.Reconcile
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = 1
	}
	if rc.BatchSize <= 0 {
		rc.BatchSize = 50
	}
	if rc.TxPolicy == "" {
		rc.TxPolicy = string(TxPolicyAuto)
	}
	return &Engine{
		store:    store,
		prices:   prices,
		cfg:      rc,
		location: cfg.Pricing.Location(),
		log:      logger.GetDefault().WithComponent("reconcile"),
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepContext,
	}
}

func (e *Engine) policy(p TxPolicy) (TxPolicy, error) {
	if p == "" {
		p = TxPolicy(e.cfg.TxPolicy)
	}
	return ParseTxPolicy(string(p))
}

// checkPolicy fails before any read when the run demands a transaction the database
// cannot give.
func (e *Engine) checkPolicy(p TxPolicy) (TxPolicy, error) {
	policy, err := e.policy(p)
	if err != nil {
		return "", err
	}
	if policy == TxPolicyRequired && !e.cfg.TxSupported {
		return "", ErrTransactionsUnsupported
	}
	return policy, nil
}

// ReconcileSession brings one session's seat rows in line with its layout and prices.
// The returned report is never nil; err is set when the session failed.
func (e *Engine) ReconcileSession(ctx context.Context, sessionID uuid.UUID, opts Options) (*Report, error) {
	policy, err := e.checkPolicy(opts.TxPolicy)
	if err != nil {
		report := &Report{SessionID: sessionID, DryRun: opts.DryRun, Fallback: !e.cfg.TxSupported}
		return e.fail(ctx, report, err)
	}
	if !e.cfg.TxSupported && !opts.DryRun {
		e.log.LogReconcileFallback(ctx, sessionID.String(), string(policy))
	}

	var report *Report
	for attempt := 1; ; attempt++ {
		report, err = e.attempt(ctx, sessionID, opts)
		report.Attempts = attempt
		if err == nil {
			e.log.LogReconcileSession(ctx, sessionID.String(), report.logAttrs()...)
			return report, nil
		}
		if !IsRetryable(err) || attempt >= e.cfg.MaxAttempts {
			return e.fail(ctx, report, err)
		}

		backoff := e.backoff(attempt)
		e.log.LogReconcileRetry(ctx, sessionID.String(), attempt, backoff, err)
		if serr := e.sleep(ctx, backoff); serr != nil {
			return e.fail(ctx, report, serr)
		}
	}
}

func (e *Engine) fail(ctx context.Context, report *Report, err error) (*Report, error) {
	report.Error = err.Error()
	switch {
	case IsRetryable(err):
		report.ErrorCode = CodeSerialization
	case errors.Is(err, ErrTransactionsUnsupported):
		report.ErrorCode = CodeTransactionsRequired
	default:
		report.ErrorCode = CodeFailed
	}
	e.log.LogReconcileFailure(ctx, report.SessionID.String(), report.Attempts, err)
	return report, err
}

// backoff doubles from the base per attempt up to the cap, then keeps a random share
// between half and all of it.
func (e *Engine) backoff(attempt int) time.Duration {
	d := e.cfg.BaseBackoff
	if d <= 0 {
		return 0
	}
	for i := 1; i < attempt && d < e.cfg.MaxBackoff; i++ {
		d *= 2
	}
	if e.cfg.MaxBackoff > 0 && d > e.cfg.MaxBackoff {
		d = e.cfg.MaxBackoff
	}
	half := d / 2
	return half + rand.N(half+1)
}

func (e *Engine) attempt(ctx context.Context, sessionID uuid.UUID, opts Options) (*Report, error) {
	report := &Report{SessionID: sessionID, DryRun: opts.DryRun, Fallback: !e.cfg.TxSupported}
	now := e.now()

	run := func(st Store) error {
		return e.run(ctx, st, sessionID, now, opts.DryRun, report)
	}
	if e.cfg.TxSupported && !opts.DryRun {
		return report, e.store.InTx(ctx, run)
	}
	return report, run(e.store)
}

func (e *Engine) run(ctx context.Context, st Store, sessionID uuid.UUID, now time.Time, dryRun bool, report *Report) error {
	source, err := st.Source(ctx, sessionID)
	if err != nil {
		return err
	}
	rows, err := st.ListSeats(ctx, sessionID)
	if err != nil {
		return err
	}
	ticketed, err := st.TicketedSeatIDs(ctx, sessionID)
	if err != nil {
		return err
	}
	live, err := st.LiveCartIDs(ctx, heldCartIDs(rows), now)
	if err != nil {
		return err
	}
	if live == nil {
		live = map[uuid.UUID]bool{}
	}
	facts := Facts{Ticketed: ticketed, LiveCarts: live, Now: now}

	report.Real = len(rows)
	canon := Canonicalize(rows, facts)
	report.Anomalies = append(report.Anomalies, canon.Anomalies...)
	for _, fix := range canon.Fixes {
		if fix.HoldCleared {
			report.HoldsCleared++
		}
		if fix.ResidueScrubbed {
			report.ResidueScrubbed++
		}
		if fix.SoldAtBackfilled {
			report.SoldAtBackfilled++
		}
	}

	current := canon.Rows
	if !dryRun {
		current, err = e.applyFixes(ctx, st, canon, now)
		if err != nil {
			return err
		}
	}

	expected, err := e.expected(ctx, source)
	if errors.Is(err, ErrMissingLayout) {
		report.MissingLayout = true
		report.Error = err.Error()
		report.ErrorCode = CodeMissingLayout
		return nil
	}
	if err != nil {
		return err
	}
	report.Expected = len(expected)

	plan := Diff(sessionID, current, expected, facts)
	report.Protected = len(plan.Protected)
	report.Duplicates = plan.Duplicates
	report.IdentityConflicts = plan.IdentityConflicts
	report.SkippedLocked = plan.SkippedLocked
	report.Anomalies = append(report.Anomalies, plan.Anomalies...)

	if dryRun {
		report.Deleted = len(plan.Deletes)
		report.Updated = len(plan.Updates)
		report.Inserted = len(plan.Inserts)
		return nil
	}
	return e.applyPlan(ctx, st, plan, now, report)
}

// applyFixes writes the canonical rows and returns them with their new versions. A row
// that changed since it was read means the whole session must be read again.
func (e *Engine) applyFixes(ctx context.Context, st Store, canon Canonical, now time.Time) ([]seats.Seat, error) {
	bumped := make(map[uuid.UUID]bool, len(canon.Fixes))
	for _, fix := range canon.Fixes {
		ok, err := st.ApplyFix(ctx, fix, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: seat %s changed during canonicalization", ErrSerializationConflict, fix.Seat.SeatCode)
		}
		bumped[fix.Seat.ID] = true
	}

	rows := make([]seats.Seat, len(canon.Rows))
	copy(rows, canon.Rows)
	for i := range rows {
		if bumped[rows[i].ID] {
			rows[i].Version++
		}
	}
	return rows, nil
}

// applyPlan runs deletes, then updates, then inserts. A code whose old row could not be
// deleted or renamed stays taken.
func (e *Engine) applyPlan(ctx context.Context, st Store, plan Plan, now time.Time, report *Report) error {
	stuck := make(map[string]bool)
	for _, d := range plan.Deletes {
		ok, err := st.DeleteSeat(ctx, d)
		if err != nil {
			return err
		}
		if !ok {
			report.SkippedLocked++
			stuck[d.SeatCode] = true
			continue
		}
		report.Deleted++
	}

	for _, u := range plan.Updates {
		rename := u.SeatCode != u.FromCode
		if rename && stuck[u.SeatCode] {
			conflict(report, u.SeatID, u.SeatCode)
			stuck[u.FromCode] = true
			continue
		}
		ok, err := st.UpdateSeat(ctx, u, now)
		if err != nil {
			return err
		}
		if !ok {
			report.SkippedLocked++
			if rename {
				stuck[u.FromCode] = true
			}
			continue
		}
		report.Updated++
	}

	for i := range plan.Inserts {
		seat := plan.Inserts[i]
		if stuck[seat.SeatCode] {
			conflict(report, uuid.Nil, seat.SeatCode)
			continue
		}
		ok, err := st.InsertSeat(ctx, &seat)
		if err != nil {
			return err
		}
		if !ok {
			conflict(report, uuid.Nil, seat.SeatCode)
			continue
		}
		report.Inserted++
	}
	return nil
}

func conflict(report *Report, seatID uuid.UUID, code string) {
	report.IdentityConflicts++
	report.Anomalies = append(report.Anomalies, Anomaly{
		SeatID: seatID, SeatCode: code, Kind: AnomalyIdentityConflict, Detail: "code still taken when applied",
	})
}

// expected expands the session layout and prices every seat at the session start.
func (e *Engine) expected(ctx context.Context, source *sessions.SeatMapSource) ([]layouts.ExpectedSeat, error) {
	if source.Layout == nil {
		return nil, ErrMissingLayout
	}
	if err := layouts.Validate(*source.Layout); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingLayout, err)
	}

	var rules []pricing.PriceRule
	if e.prices != nil {
		var err error
		if rules, err = e.prices.ActiveRules(ctx); err != nil {
			return nil, err
		}
	}

	session := source.Session
	expected := layouts.Expand(*source.Layout, session.BasePriceCents, session.VIPPriceCents)
	for i := range expected {
		res := pricing.Resolve(rules, source.Pricing, expected[i].Type, session.StartsAt, e.location)
		expected[i].PriceCents = res.PriceCents
	}
	return expected, nil
}

// ReconcileAll walks every session in creation order. A failing session is recorded in
// the batch report and the walk goes on.
func (e *Engine) ReconcileAll(ctx context.Context, opts BatchOptions) (*BatchReport, error) {
	policy, err := e.checkPolicy(opts.TxPolicy)
	if err != nil {
		return nil, err
	}
	size := opts.BatchSize
	if size <= 0 {
		size = e.cfg.BatchSize
	}

	batch := &BatchReport{}
	var cursor *sessions.Cursor
	for {
		pageSize := size
		if opts.Limit > 0 {
			remaining := opts.Limit - batch.Totals.Sessions
			if remaining <= 0 {
				break
			}
			pageSize = min(pageSize, remaining)
		}

		page, err := e.store.ListSessions(ctx, cursor, pageSize)
		if err != nil {
			return batch, err
		}
		for _, session := range page {
			if err := ctx.Err(); err != nil {
				return batch, err
			}
			report, _ := e.ReconcileSession(ctx, session.ID, Options{DryRun: opts.DryRun, TxPolicy: policy})
			batch.Add(report)
		}
		if len(page) < pageSize {
			break
		}
		last := page[len(page)-1]
		cursor = &sessions.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return batch, nil
}

// MaterializeSession expands or repairs the seats of one session.
func (e *Engine) MaterializeSession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := e.ReconcileSession(ctx, sessionID, Options{})
	return err
}

func heldCartIDs(rows []seats.Seat) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, row := range rows {
		if row.HeldByCartID == nil || seen[*row.HeldByCartID] {
			continue
		}
		seen[*row.HeldByCartID] = true
		ids = append(ids, *row.HeldByCartID)
	}
	return ids
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
