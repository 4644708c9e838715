package assessment

import (
	"fmt"
	"strings"
	"time"

	"github.com/digital-seeds-4/preincubation/internal/catalog"
)

// Event is an input to Apply.
type Event interface {
	op() string
}

// Start begins a session for the given identity.
type Start struct {
	UserName    string
	ProjectName string
	At          time.Time
}

// Select marks an option of the current question as pending.
type Select struct {
	OptionID string
}

// Confirm commits the pending option and moves forward.
type Confirm struct{}

// Previous moves back one question without discarding answers.
type Previous struct{}

// Reset discards all progression.
type Reset struct{}

func (Start) op() string    { return "start" }
func (Select) op() string   { return "select an answer" }
func (Confirm) op() string  { return "confirm" }
func (Previous) op() string { return "go back" }
func (Reset) op() string    { return "reset" }

// Apply computes the state that follows event. It never mutates state; on
// error the returned State is the zero value and the caller keeps its own.
//
// Confirming the final question yields StageComplete with a nil Submission.
// Building and persisting the Submission is the Session's job.
func Apply(cat *catalog.Catalog, state State, event Event) (State, error) {
	if cat == nil || cat.PhaseCount() == 0 {
		return State{}, fmt.Errorf("assessment: catalog is empty")
	}
	switch ev := event.(type) {
	case Reset:
		return Intro(), nil
	case Start:
		return applyStart(state, ev)
	case Select:
		return applySelect(cat, state, ev)
	case Confirm:
		return applyConfirm(cat, state)
	case Previous:
		return applyPrevious(cat, state)
	case nil:
		return State{}, fmt.Errorf("assessment: nil event")
	default:
		return State{}, fmt.Errorf("assessment: unsupported event %T", event)
	}
}

func applyStart(state State, ev Start) (State, error) {
	if state.Stage != StageIntro && state.Stage != "" {
		return State{}, illegal(ev, state, "a session is already running; reset first")
	}
	user := strings.TrimSpace(ev.UserName)
	project := strings.TrimSpace(ev.ProjectName)
	if user == "" {
		return State{}, &ValidationError{Field: "user name", Reason: "is required"}
	}
	if project == "" {
		return State{}, &ValidationError{Field: "project name", Reason: "is required"}
	}
	return State{
		Stage:       StageInProgress,
		Phase:       1,
		Question:    0,
		Answers:     map[AnswerKey]string{},
		Scores:      map[int]int{},
		UserName:    user,
		ProjectName: project,
		StartedAt:   ev.At,
	}, nil
}

func applySelect(cat *catalog.Catalog, state State, ev Select) (State, error) {
	question, err := currentQuestion(cat, state, ev)
	if err != nil {
		return State{}, err
	}
	if _, ok := question.Option(ev.OptionID); !ok {
		return State{}, &InvalidOptionError{PhaseID: state.Phase, QuestionID: question.ID, OptionID: ev.OptionID}
	}
	next := state.Clone()
	pending := ev.OptionID
	next.Pending = &pending
	return next, nil
}

func applyConfirm(cat *catalog.Catalog, state State) (State, error) {
	ev := Confirm{}
	question, err := currentQuestion(cat, state, ev)
	if err != nil {
		return State{}, err
	}
	if state.Pending == nil {
		return State{}, illegal(ev, state, "no answer selected")
	}
	if _, ok := question.Option(*state.Pending); !ok {
		return State{}, &InvalidOptionError{PhaseID: state.Phase, QuestionID: question.ID, OptionID: *state.Pending}
	}
	next := state.Clone()
	if next.Answers == nil {
		next.Answers = map[AnswerKey]string{}
	}
	if next.Scores == nil {
		next.Scores = map[int]int{}
	}
	next.Answers[AnswerKey{PhaseID: state.Phase, QuestionID: question.ID}] = *state.Pending
	next.Pending = nil

	phase, _ := cat.Phase(state.Phase)
	next.Scores[phase.ID] = PhaseScore(phase, next.Answers)

	switch {
	case state.Question+1 < phase.QuestionCount():
		next.Question++
	case state.Phase < cat.PhaseCount():
		next.Phase++
		next.Question = 0
	default:
		next.Stage = StageComplete
		next.Submission = nil
	}
	return next, nil
}

func applyPrevious(cat *catalog.Catalog, state State) (State, error) {
	ev := Previous{}
	if _, err := currentQuestion(cat, state, ev); err != nil {
		return State{}, err
	}
	if state.Phase == 1 && state.Question == 0 {
		return State{}, illegal(ev, state, "already at the first question")
	}
	next := state.Clone()
	next.Pending = nil
	if next.Question > 0 {
		next.Question--
		return next, nil
	}
	next.Phase--
	prior, _ := cat.Phase(next.Phase)
	next.Question = prior.QuestionCount() - 1
	return next, nil
}

// PhaseScore sums the values of the recorded options for every question of
// phase. It recomputes from scratch so overwritten answers never add twice.
func PhaseScore(phase catalog.Phase, answers map[AnswerKey]string) int {
	total := 0
	for _, question := range phase.Questions {
		optionID, ok := answers[AnswerKey{PhaseID: phase.ID, QuestionID: question.ID}]
		if !ok {
			continue
		}
		if opt, ok := question.Option(optionID); ok {
			total += opt.Value
		}
	}
	return total
}

func currentQuestion(cat *catalog.Catalog, state State, ev Event) (catalog.Question, error) {
	if state.Stage != StageInProgress {
		return catalog.Question{}, illegal(ev, state, "no question is active")
	}
	phase, ok := cat.Phase(state.Phase)
	if !ok {
		return catalog.Question{}, illegal(ev, state, fmt.Sprintf("phase %d is not in the catalog", state.Phase))
	}
	question, ok := phase.Question(state.Question)
	if !ok {
		return catalog.Question{}, illegal(ev, state, fmt.Sprintf("phase %d has no question %d", state.Phase, state.Question))
	}
	return question, nil
}

func illegal(ev Event, state State, reason string) *IllegalTransitionError {
	stage := state.Stage
	if stage == "" {
		stage = StageIntro
	}
	return &IllegalTransitionError{Op: ev.op(), Stage: stage, Reason: reason}
}
