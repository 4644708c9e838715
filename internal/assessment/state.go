package assessment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/digital-seeds-4/preincubation/internal/submission"
)

// Stage enumerates the coarse positions of a session.
type Stage string

const (
	StageIntro      Stage = "intro"
	StageInProgress Stage = "in_progress"
	StageComplete   Stage = "complete"
)

// AnswerKey identifies a recorded answer by phase and question.
type AnswerKey struct {
	PhaseID    int
	QuestionID string
}

// String renders the key as "<phase>_<question>".
func (k AnswerKey) String() string {
	return fmt.Sprintf("%d_%s", k.PhaseID, k.QuestionID)
}

// MarshalText lets AnswerKey serve as a JSON object key.
func (k AnswerKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the "<phase>_<question>" form. Question ids may
// themselves contain underscores; only the first one separates the phase.
func (k *AnswerKey) UnmarshalText(text []byte) error {
	raw := string(text)
	phasePart, questionPart, ok := strings.Cut(raw, "_")
	if !ok || questionPart == "" {
		return fmt.Errorf("assessment: malformed answer key %q", raw)
	}
	phaseID, err := strconv.Atoi(phasePart)
	if err != nil {
		return fmt.Errorf("assessment: malformed answer key %q: %w", raw, err)
	}
	k.PhaseID = phaseID
	k.QuestionID = questionPart
	return nil
}

// State is the progression snapshot of one assessment session.
type State struct {
	Stage Stage `json:"stage"`
	// Phase is the 1-based phase id; zero outside StageInProgress.
	Phase int `json:"phase"`
	// Question is the 0-based index within Phase.
	Question int                  `json:"question"`
	Answers  map[AnswerKey]string `json:"answers"`
	Scores   map[int]int          `json:"scores"`
	// Pending holds the selected but not yet confirmed option id.
	Pending     *string                `json:"pending,omitempty"`
	UserName    string                 `json:"userName,omitempty"`
	ProjectName string                 `json:"projectName,omitempty"`
	StartedAt   time.Time              `json:"startedAt"`
	Submission  *submission.Submission `json:"submission,omitempty"`
}

// Intro returns the initial state.
func Intro() State {
	return State{Stage: StageIntro}
}

// Answer returns the recorded option id for a question.
func (s State) Answer(phaseID int, questionID string) (string, bool) {
	optionID, ok := s.Answers[AnswerKey{PhaseID: phaseID, QuestionID: questionID}]
	return optionID, ok
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	clone := s
	if s.Answers != nil {
		clone.Answers = make(map[AnswerKey]string, len(s.Answers))
		for key, value := range s.Answers {
			clone.Answers[key] = value
		}
	}
	if s.Scores != nil {
		clone.Scores = make(map[int]int, len(s.Scores))
		for key, value := range s.Scores {
			clone.Scores[key] = value
		}
	}
	if s.Pending != nil {
		pending := *s.Pending
		clone.Pending = &pending
	}
	if s.Submission != nil {
		sub := s.Submission.Clone()
		clone.Submission = &sub
	}
	return clone
}
