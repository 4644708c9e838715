package assessment

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/digital-seeds-4/preincubation/internal/catalog"
)

// Property: after any mix of answers, answer changes and backward moves, the
// score of every phase equals the sum of the last confirmed option values.
func TestPhaseScoresFollowLastConfirmedAnswers(t *testing.T) {
	cat := catalog.Default()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)

	properties.Property("phase score is the sum of last confirmed values", prop.ForAll(
		func(moves []int) bool {
			session, err := NewSession(cat)
			if err != nil {
				return false
			}
			if err := session.Start("prop", "prop"); err != nil {
				return false
			}
			confirmed := map[AnswerKey]int{}
			step := func(choice int) bool {
				question, ok := session.CurrentQuestion()
				if !ok {
					return false
				}
				opt := question.Options[choice%len(question.Options)]
				if _, err := session.SelectAnswer(opt.ID); err != nil {
					return false
				}
				phase := session.State().Phase
				if err := session.ConfirmAndAdvance(context.Background()); err != nil {
					return false
				}
				confirmed[AnswerKey{PhaseID: phase, QuestionID: question.ID}] = opt.Value
				return true
			}
			for _, move := range moves {
				if session.State().Stage == StageComplete {
					break
				}
				if move%4 == 3 {
					state := session.State()
					if state.Phase == 1 && state.Question == 0 {
						continue
					}
					if err := session.GoToPrevious(); err != nil {
						return false
					}
					continue
				}
				if !step(move) {
					return false
				}
			}
			for session.State().Stage != StageComplete {
				if !step(0) {
					return false
				}
			}
			final := session.State()
			for _, phase := range cat.Phases {
				want := 0
				for _, question := range phase.Questions {
					want += confirmed[AnswerKey{PhaseID: phase.ID, QuestionID: question.ID}]
				}
				if final.Scores[phase.ID] != want {
					return false
				}
			}
			sub, ok := session.Submission()
			return ok && sub.MaturityScore >= 0 && sub.MaturityScore <= 100
		},
		gen.SliceOfN(40, gen.IntRange(0, 11)),
	))

	properties.TestingRun(t)
}
