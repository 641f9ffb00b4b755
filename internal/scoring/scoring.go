// Package scoring grades a session's recorded answers against a subject's
// question set. It is a pure computation with no side effects.
package scoring

import (
	"math"

	"github.com/smkbandara/cbt-backend/internal/model"
)

// Result holds correctness counts and the rounded percentage score.
type Result struct {
	Correct    int `json:"correct"`
	Wrong      int `json:"wrong"`
	Percentage int `json:"percentage"`
}

// Score grades answers against the question set. Unanswered questions count
// toward neither Correct nor Wrong but remain in the denominator. The
// percentage rounds half-up; an empty question set scores 0.
func Score(answers map[string]string, questions []model.Question) Result {
	var res Result
	for i := range questions {
		chosen, ok := answers[questions[i].ID.String()]
		if !ok {
			continue
		}
		if chosen == questions[i].CorrectOption {
			res.Correct++
		} else {
			res.Wrong++
		}
	}
	if len(questions) > 0 {
		res.Percentage = roundHalfUp(float64(res.Correct) * 100 / float64(len(questions)))
	}
	return res
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
