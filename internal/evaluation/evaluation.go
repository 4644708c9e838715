// Package evaluation applies reviewer decisions to pending submissions and
// provides the read-side views of the submission collection used by the
// reviewer dashboard.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/digital-seeds-4/preincubation/internal/logbook"
	"github.com/digital-seeds-4/preincubation/internal/store"
	"github.com/digital-seeds-4/preincubation/internal/submission"
)

// ErrAlreadyEvaluated matches every *AlreadyEvaluatedError.
var ErrAlreadyEvaluated = errors.New("evaluation: submission already evaluated")

// AlreadyEvaluatedError reports an evaluate call on a non-pending submission.
type AlreadyEvaluatedError struct {
	ID     string
	Status submission.Status
}

func (e *AlreadyEvaluatedError) Error() string {
	return fmt.Sprintf("evaluation: submission %s is already %s", e.ID, e.Status)
}

// Is reports whether target is ErrAlreadyEvaluated.
func (e *AlreadyEvaluatedError) Is(target error) bool {
	return target == ErrAlreadyEvaluated
}

// ValidationError reports an unusable decision or evaluator.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("evaluation: %s %s", e.Field, e.Reason)
}

// Decision is the reviewer verdict.
type Decision = submission.Status

const (
	Approve Decision = submission.StatusApproved
	Reject  Decision = submission.StatusRejected
)

// ParseDecision accepts "approved"/"rejected" and the imperative forms.
func ParseDecision(value string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "approved", "approve":
		return Approve, nil
	case "rejected", "reject":
		return Reject, nil
	default:
		return "", &ValidationError{Field: "decision", Reason: fmt.Sprintf("%q must be approved or rejected", value)}
	}
}

// Workflow evaluates submissions held by a store.
type Workflow struct {
	store store.Store
	clock func() time.Time
	log   *logbook.Logbook
}

// Option customizes a Workflow.
type Option func(*Workflow)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(w *Workflow) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithLogbook records decisions.
func WithLogbook(book *logbook.Logbook) Option {
	return func(w *Workflow) {
		w.log = book
	}
}

// New wires a workflow to the submission store.
func New(st store.Store, opts ...Option) (*Workflow, error) {
	if st == nil {
		return nil, fmt.Errorf("evaluation: submission store is required")
	}
	wf := &Workflow{store: st, clock: time.Now}
	for _, opt := range opts {
		opt(wf)
	}
	return wf, nil
}

// Evaluate moves a pending submission to the decision. The status check and
// the write happen inside one store Update, so a second evaluation always
// sees the first and fails with AlreadyEvaluatedError.
func (w *Workflow) Evaluate(ctx context.Context, id string, decision Decision, notes, evaluator string) (submission.Submission, error) {
	if decision != Approve && decision != Reject {
		return submission.Submission{}, &ValidationError{Field: "decision", Reason: fmt.Sprintf("%q must be approved or rejected", decision)}
	}
	evaluator = strings.TrimSpace(evaluator)
	if evaluator == "" {
		return submission.Submission{}, &ValidationError{Field: "evaluator", Reason: "is required"}
	}
	updated, err := w.store.Update(ctx, id, func(sub *submission.Submission) error {
		if sub.Status != submission.StatusPending {
			return &AlreadyEvaluatedError{ID: sub.ID, Status: sub.Status}
		}
		at := w.clock()
		by := evaluator
		sub.Status = decision
		sub.EvaluationNotes = notes
		sub.EvaluatedBy = &by
		sub.EvaluatedAt = &at
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyEvaluated) {
			w.log.Warn("Evaluation of %s by %s refused: %v", id, evaluator, err)
		}
		return submission.Submission{}, err
	}
	w.log.Info("Submission %s (%s) %s by %s", updated.ID, updated.ProjectName, updated.Status, evaluator)
	return updated, nil
}

// Filter selects submissions by status; FilterAll keeps everything.
type Filter string

const FilterAll Filter = "all"

// ParseFilter accepts "all" or any submission status.
func ParseFilter(value string) (Filter, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" || trimmed == string(FilterAll) {
		return FilterAll, nil
	}
	status, err := submission.ParseStatus(trimmed)
	if err != nil {
		return "", fmt.Errorf("evaluation: filter: %w", err)
	}
	return Filter(status), nil
}

// Filters lists the dashboard tabs in display order.
func Filters() []Filter {
	out := []Filter{FilterAll}
	for _, status := range submission.Statuses {
		out = append(out, Filter(status))
	}
	return out
}

// Matches reports whether sub passes the filter. Status filters are exact.
func (f Filter) Matches(sub submission.Submission) bool {
	return f == FilterAll || f == "" || submission.Status(f) == sub.Status
}

// List returns the submissions passing filter in store order.
func (w *Workflow) List(ctx context.Context, filter Filter) ([]submission.Submission, error) {
	all, err := w.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return Select(all, filter), nil
}

// Select filters an already loaded collection.
func Select(all []submission.Submission, filter Filter) []submission.Submission {
	out := make([]submission.Submission, 0, len(all))
	for _, sub := range all {
		if filter.Matches(sub) {
			out = append(out, sub)
		}
	}
	return out
}

// Stats aggregates the whole collection.
type Stats struct {
	Total        int
	ByStatus     map[submission.Status]int
	AverageScore int
}

// Count returns the number of submissions with status.
func (s Stats) Count(status submission.Status) int {
	return s.ByStatus[status]
}

// Stats loads every submission and summarizes it.
func (w *Workflow) Stats(ctx context.Context) (Stats, error) {
	all, err := w.store.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(all), nil
}

// Summarize computes per-status counts and the rounded mean maturity score.
// An empty collection averages to 0.
func Summarize(all []submission.Submission) Stats {
	stats := Stats{Total: len(all), ByStatus: map[submission.Status]int{}}
	for _, status := range submission.Statuses {
		stats.ByStatus[status] = 0
	}
	sum := 0
	for _, sub := range all {
		stats.ByStatus[sub.Status]++
		sum += sub.MaturityScore
	}
	n := len(all)
	if n < 1 {
		n = 1
	}
	stats.AverageScore = (2*sum + n) / (2 * n)
	return stats
}
