package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/digital-seeds-4/preincubation/internal/catalog"
	"github.com/digital-seeds-4/preincubation/internal/logbook"
	"github.com/digital-seeds-4/preincubation/internal/scoring"
	"github.com/digital-seeds-4/preincubation/internal/submission"
)

// Sink receives the Submission of a completed session. store.Store satisfies
// it.
type Sink interface {
	FindByProjectName(ctx context.Context, name string) (submission.Submission, bool, error)
	Save(ctx context.Context, sub submission.Submission) error
	Update(ctx context.Context, id string, fn func(*submission.Submission) error) (submission.Submission, error)
}

// errNoLongerPending aborts a replacement when the record was evaluated
// after the lookup.
var errNoLongerPending = errors.New("assessment: submission no longer pending")

// Session owns the progression state of one user walking the catalog.
// It is not safe for concurrent use.
type Session struct {
	catalog *catalog.Catalog
	sink    Sink
	clock   func() time.Time
	newID   func() string
	log     *logbook.Logbook
	state   State
}

// Option customizes a Session.
type Option func(*Session)

// WithStore persists completed submissions.
func WithStore(sink Sink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides how new submission ids are minted.
func WithIDGenerator(next func() string) Option {
	return func(s *Session) {
		if next != nil {
			s.newID = next
		}
	}
}

// WithLogbook records session milestones.
func WithLogbook(book *logbook.Logbook) Option {
	return func(s *Session) {
		s.log = book
	}
}

// NewSession creates a session at the intro stage.
func NewSession(cat *catalog.Catalog, opts ...Option) (*Session, error) {
	if cat == nil {
		return nil, fmt.Errorf("assessment: catalog is required")
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("assessment: %w", err)
	}
	session := &Session{
		catalog: cat,
		clock:   time.Now,
		newID:   uuid.NewString,
		state:   Intro(),
	}
	for _, opt := range opts {
		opt(session)
	}
	return session, nil
}

// Catalog returns the questionnaire the session walks.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// State returns a copy of the current progression state.
func (s *Session) State() State {
	return s.state.Clone()
}

// Start validates the identity and opens phase 1, question 0.
func (s *Session) Start(userName, projectName string) error {
	next, err := Apply(s.catalog, s.state, Start{UserName: userName, ProjectName: projectName, At: s.clock()})
	if err != nil {
		return err
	}
	s.state = next
	s.log.Info("Assessment started for %s (%s)", next.ProjectName, next.UserName)
	return nil
}

// SelectAnswer marks optionID as pending and returns the option so the
// caller can show its consequence before confirming.
func (s *Session) SelectAnswer(optionID string) (catalog.Option, error) {
	next, err := Apply(s.catalog, s.state, Select{OptionID: optionID})
	if err != nil {
		return catalog.Option{}, err
	}
	s.state = next
	opt, _ := s.PendingOption()
	return opt, nil
}

// ConfirmAndAdvance commits the pending answer and moves forward. Confirming
// the final question scores the session and hands the Submission to the
// store; if that fails the session stays on the final question.
func (s *Session) ConfirmAndAdvance(ctx context.Context) error {
	next, err := Apply(s.catalog, s.state, Confirm{})
	if err != nil {
		return err
	}
	if next.Stage == StageComplete {
		sub, err := s.submit(ctx, next)
		if err != nil {
			s.log.Error("Submission for %s failed: %v", next.ProjectName, err)
			return err
		}
		next.Submission = &sub
		s.log.Info("Submission %s saved for %s: maturity %d%%", sub.ID, sub.ProjectName, sub.MaturityScore)
	} else if next.Phase != s.state.Phase {
		phase, _ := s.catalog.Phase(s.state.Phase)
		s.log.Info("Phase %d completed for %s with %d points", phase.ID, next.ProjectName, next.Scores[phase.ID])
	}
	s.state = next
	return nil
}

// GoToPrevious moves back one question, keeping recorded answers.
func (s *Session) GoToPrevious() error {
	next, err := Apply(s.catalog, s.state, Previous{})
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Reset discards all progression. A stored Submission is unaffected.
func (s *Session) Reset() {
	s.state = Intro()
}

// CurrentPhase returns the active phase.
func (s *Session) CurrentPhase() (catalog.Phase, bool) {
	if s.state.Stage != StageInProgress {
		return catalog.Phase{}, false
	}
	return s.catalog.Phase(s.state.Phase)
}

// CurrentQuestion returns the active question.
func (s *Session) CurrentQuestion() (catalog.Question, bool) {
	phase, ok := s.CurrentPhase()
	if !ok {
		return catalog.Question{}, false
	}
	return phase.Question(s.state.Question)
}

// PendingOption returns the selected but unconfirmed option.
func (s *Session) PendingOption() (catalog.Option, bool) {
	if s.state.Pending == nil {
		return catalog.Option{}, false
	}
	question, ok := s.CurrentQuestion()
	if !ok {
		return catalog.Option{}, false
	}
	return question.Option(*s.state.Pending)
}

// RecordedAnswer returns the option already confirmed for the active
// question, if the user came back to it.
func (s *Session) RecordedAnswer() (catalog.Option, bool) {
	question, ok := s.CurrentQuestion()
	if !ok {
		return catalog.Option{}, false
	}
	optionID, ok := s.state.Answer(s.state.Phase, question.ID)
	if !ok {
		return catalog.Option{}, false
	}
	return question.Option(optionID)
}

// Submission returns the Submission of a completed session.
func (s *Session) Submission() (submission.Submission, bool) {
	if s.state.Submission == nil {
		return submission.Submission{}, false
	}
	return s.state.Submission.Clone(), true
}

// Progress returns the overall completion percentage.
func (s *Session) Progress() int {
	return Progress(s.catalog, s.state)
}

// Progress is ((phase-1) + question/questionsInPhase) / phaseCount as a
// rounded percentage; 100 once complete and 0 before start.
func Progress(cat *catalog.Catalog, state State) int {
	switch state.Stage {
	case StageComplete:
		return 100
	case StageInProgress:
	default:
		return 0
	}
	phase, ok := cat.Phase(state.Phase)
	phaseCount := cat.PhaseCount()
	if !ok || phaseCount == 0 || phase.QuestionCount() == 0 {
		return 0
	}
	// scaled to phaseCount*questions*100 to stay in integers
	questions := phase.QuestionCount()
	numerator := ((state.Phase-1)*questions + state.Question) * 100
	denominator := phaseCount * questions
	return (2*numerator + denominator) / (2 * denominator)
}

func (s *Session) submit(ctx context.Context, state State) (submission.Submission, error) {
	in := scoring.Input{
		UserName:    state.UserName,
		ProjectName: state.ProjectName,
		PhaseScores: state.Scores,
		CreatedAt:   state.StartedAt,
		SubmittedAt: s.clock(),
	}
	if s.sink == nil {
		in.ID = s.newID()
		return scoring.Generate(s.catalog, in), nil
	}
	existing, found, err := s.sink.FindByProjectName(ctx, state.ProjectName)
	if err != nil {
		return submission.Submission{}, fmt.Errorf("assessment: look up %s: %w", state.ProjectName, err)
	}
	if found && existing.Status == submission.StatusPending {
		replaced, err := s.replacePending(ctx, existing, in)
		if err == nil {
			return replaced, nil
		}
		if !errors.Is(err, errNoLongerPending) {
			return submission.Submission{}, err
		}
		s.log.Warn("Submission %s for %s was evaluated meanwhile; creating a new record", existing.ID, state.ProjectName)
	}
	in.ID = s.newID()
	sub := scoring.Generate(s.catalog, in)
	if err := s.sink.Save(ctx, sub); err != nil {
		return submission.Submission{}, fmt.Errorf("assessment: save submission %s: %w", sub.ID, err)
	}
	return sub, nil
}

// replacePending overwrites the newest record for the project, provided it is
// still pending when the store applies the write.
func (s *Session) replacePending(ctx context.Context, existing submission.Submission, in scoring.Input) (submission.Submission, error) {
	in.ID = existing.ID
	in.CreatedAt = existing.CreatedAt
	sub := scoring.Generate(s.catalog, in)
	_, err := s.sink.Update(ctx, existing.ID, func(current *submission.Submission) error {
		if current.Status != submission.StatusPending {
			return errNoLongerPending
		}
		*current = sub.Clone()
		return nil
	})
	if err != nil {
		if errors.Is(err, errNoLongerPending) {
			return submission.Submission{}, err
		}
		return submission.Submission{}, fmt.Errorf("assessment: replace submission %s: %w", sub.ID, err)
	}
	s.log.Warn("Replacing pending submission %s for %s", existing.ID, in.ProjectName)
	return sub, nil
}
