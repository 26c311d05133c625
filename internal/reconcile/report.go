package reconcile

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/google/uuid"
)

// Report is the outcome of reconciling one session.
type Report struct {
	SessionID         uuid.UUID `json:"session_id"`
	Expected          int       `json:"expected"`
	Real              int       `json:"real"`
	Inserted          int       `json:"inserted"`
	Updated           int       `json:"updated"`
	Deleted           int       `json:"deleted"`
	Protected         int       `json:"protected"`
	Duplicates        int       `json:"duplicates"`
	IdentityConflicts int       `json:"identity_conflicts"`
	SkippedLocked     int       `json:"skipped_locked"`
	HoldsCleared      int       `json:"holds_cleared"`
	ResidueScrubbed   int       `json:"residue_scrubbed"`
	SoldAtBackfilled  int       `json:"sold_at_backfilled"`
	Anomalies         []Anomaly `json:"anomalies,omitempty"`
	MissingLayout     bool      `json:"missing_layout"`
	Fallback          bool      `json:"fallback"`
	DryRun            bool      `json:"dry_run"`
	Attempts          int       `json:"attempts"`
	Error             string    `json:"error,omitempty"`
	ErrorCode         string    `json:"error_code,omitempty"`
}

// Changes counts the writes the run made, or would make on a dry run.
func (r *Report) Changes() int {
	return r.Inserted + r.Updated + r.Deleted + r.HoldsCleared + r.ResidueScrubbed + r.SoldAtBackfilled
}

func (r *Report) Failed() bool {
	return r.Error != "" && !r.MissingLayout
}

// Inconsistent reports whether the session needed, or still needs, attention.
func (r *Report) Inconsistent() bool {
	return r.Changes() > 0 || r.Failed() || r.MissingLayout ||
		r.Protected > 0 || r.Duplicates > 0 || r.IdentityConflicts > 0 ||
		r.SkippedLocked > 0 || len(r.Anomalies) > 0
}

func (r *Report) logAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Int("expected", r.Expected),
		slog.Int("real", r.Real),
		slog.Int("inserted", r.Inserted),
		slog.Int("updated", r.Updated),
		slog.Int("deleted", r.Deleted),
		slog.Int("protected", r.Protected),
		slog.Int("holds_cleared", r.HoldsCleared),
		slog.Int("attempts", r.Attempts),
		slog.Bool("fallback", r.Fallback),
		slog.Bool("dry_run", r.DryRun),
	}
}

type Totals struct {
	Sessions          int `json:"sessions"`
	Failed            int `json:"failed"`
	MissingLayout     int `json:"missing_layout"`
	Inserted          int `json:"inserted"`
	Updated           int `json:"updated"`
	Deleted           int `json:"deleted"`
	Protected         int `json:"protected"`
	Duplicates        int `json:"duplicates"`
	IdentityConflicts int `json:"identity_conflicts"`
	SkippedLocked     int `json:"skipped_locked"`
	HoldsCleared      int `json:"holds_cleared"`
	ResidueScrubbed   int `json:"residue_scrubbed"`
	SoldAtBackfilled  int `json:"sold_at_backfilled"`
	Anomalies         int `json:"anomalies"`
}

type BatchReport struct {
	Sessions []*Report `json:"sessions"`
	Totals   Totals    `json:"totals"`
}

func (b *BatchReport) Add(r *Report) {
	b.Sessions = append(b.Sessions, r)

	t := &b.Totals
	t.Sessions++
	if r.Failed() {
		t.Failed++
	}
	if r.MissingLayout {
		t.MissingLayout++
	}
	t.Inserted += r.Inserted
	t.Updated += r.Updated
	t.Deleted += r.Deleted
	t.Protected += r.Protected
	t.Duplicates += r.Duplicates
	t.IdentityConflicts += r.IdentityConflicts
	t.SkippedLocked += r.SkippedLocked
	t.HoldsCleared += r.HoldsCleared
	t.ResidueScrubbed += r.ResidueScrubbed
	t.SoldAtBackfilled += r.SoldAtBackfilled
	t.Anomalies += len(r.Anomalies)
}

// Inconsistent returns the session reports worth showing an operator.
func (b *BatchReport) Inconsistent() []*Report {
	var out []*Report
	for _, r := range b.Sessions {
		if r.Inconsistent() {
			out = append(out, r)
		}
	}
	return out
}

// WriteTable prints the inconsistent sessions and the totals as aligned columns.
func (b *BatchReport) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tEXPECTED\tREAL\tINS\tUPD\tDEL\tPROT\tDUP\tCONFL\tLOCKED\tHOLDS\tANOM\tTRIES\tSTATUS")
	for _, r := range b.Inconsistent() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.SessionID, r.Expected, r.Real, r.Inserted, r.Updated, r.Deleted, r.Protected,
			r.Duplicates, r.IdentityConflicts, r.SkippedLocked, r.HoldsCleared, len(r.Anomalies),
			r.Attempts, r.status())
	}
	t := b.Totals
	fmt.Fprintf(tw, "TOTAL (%d sessions, %d failed)\t\t\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\t\n",
		t.Sessions, t.Failed, t.Inserted, t.Updated, t.Deleted, t.Protected,
		t.Duplicates, t.IdentityConflicts, t.SkippedLocked, t.HoldsCleared, t.Anomalies)
	return tw.Flush()
}

func (r *Report) status() string {
	status := "ok"
	switch {
	case r.ErrorCode != "":
		status = r.ErrorCode
	case r.Error != "":
		status = CodeFailed
	}
	if r.DryRun {
		status += " (dry-run)"
	}
	if r.Fallback {
		status += " (no-tx)"
	}
	return status
}
