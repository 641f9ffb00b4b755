package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/smkbandara/cbt-backend/internal/model"
)

func makeQuestions(correct ...string) []model.Question {
	qs := make([]model.Question, len(correct))
	for i, c := range correct {
		qs[i] = model.Question{
			ID:            uuid.New(),
			CorrectOption: c,
		}
	}
	return qs
}

func TestScoreAllCorrect(t *testing.T) {
	qs := makeQuestions("A", "B", "C", "D")
	answers := map[string]string{}
	for i := range qs {
		answers[qs[i].ID.String()] = qs[i].CorrectOption
	}

	res := Score(answers, qs)
	if res.Correct != 4 || res.Wrong != 0 || res.Percentage != 100 {
		t.Fatalf("got %+v, want 4 correct, 0 wrong, 100%%", res)
	}
}

func TestScoreUnansweredNotWrong(t *testing.T) {
	qs := makeQuestions("A", "A", "A", "A", "A")
	answers := map[string]string{
		qs[0].ID.String(): "A",
		qs[1].ID.String(): "A",
		qs[2].ID.String(): "A",
		qs[3].ID.String(): "B",
	}

	res := Score(answers, qs)
	if res.Correct != 3 {
		t.Errorf("correct = %d, want 3", res.Correct)
	}
	if res.Wrong != 1 {
		t.Errorf("wrong = %d, want 1 (unanswered must not count as wrong)", res.Wrong)
	}
	if res.Percentage != 60 {
		t.Errorf("percentage = %d, want 60", res.Percentage)
	}
}

func TestScoreRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name    string
		correct int
		total   int
		want    int
	}{
		{"one third", 1, 3, 33},
		{"two thirds", 2, 3, 67},
		{"exact half", 1, 2, 50},
		{"five eighths", 5, 8, 63},
		{"half boundary", 1, 8, 13}, // 12.5 rounds up
		{"seven fifteenths", 7, 15, 47},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			qs := makeQuestions(make([]string, tc.total)...)
			for i := range qs {
				qs[i].CorrectOption = "A"
			}
			answers := map[string]string{}
			for i := 0; i < tc.correct; i++ {
				answers[qs[i].ID.String()] = "A"
			}
			res := Score(answers, qs)
			if res.Percentage != tc.want {
				t.Errorf("%d/%d: percentage = %d, want %d", tc.correct, tc.total, res.Percentage, tc.want)
			}
		})
	}
}

func TestScoreEmptyQuestionSet(t *testing.T) {
	res := Score(map[string]string{"x": "A"}, nil)
	if res.Correct != 0 || res.Wrong != 0 || res.Percentage != 0 {
		t.Fatalf("got %+v, want all zero", res)
	}
}

func TestScoreIgnoresStaleAnswerKeys(t *testing.T) {
	qs := makeQuestions("A")
	answers := map[string]string{
		qs[0].ID.String(): "A",
		uuid.NewString():  "B", // not in the question set
	}
	res := Score(answers, qs)
	if res.Correct != 1 || res.Wrong != 0 || res.Percentage != 100 {
		t.Fatalf("got %+v, want 1 correct, 0 wrong, 100%%", res)
	}
}
