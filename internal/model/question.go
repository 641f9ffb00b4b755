package model

import (
	"github.com/google/uuid"
)

// OptionLetters are the five answer option keys, in display order.
var OptionLetters = []string{"A", "B", "C", "D", "E"}

// QuestionOption is one answer choice: text plus optional media URLs.
type QuestionOption struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// Question represents a single exam question with five options A–E and
// exactly one designated correct option.
type Question struct {
	ID        uuid.UUID `json:"id"`
	SubjectID int       `json:"subject_id"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"`
	Audio     string    `json:"audio,omitempty"`
	// Options is keyed by option letter (A–E).
	Options       map[string]QuestionOption `json:"options"`
	CorrectOption string                    `json:"correct_option"`
}

// QuestionForStudent is a question stripped of the correct option, safe to
// send to an exam client.
type QuestionForStudent struct {
	ID      uuid.UUID                 `json:"id"`
	Text    string                    `json:"text"`
	Image   string                    `json:"image,omitempty"`
	Audio   string                    `json:"audio,omitempty"`
	Options map[string]QuestionOption `json:"options"`
}

// ForStudent returns the student-safe projection of the question.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:      q.ID,
		Text:    q.Text,
		Image:   q.Image,
		Audio:   q.Audio,
		Options: q.Options,
	}
}

// SaveQuestionRequest is the payload for creating or updating a question.
type SaveQuestionRequest struct {
	Text          string                    `json:"text" binding:"required,min=1,max=4000"`
	Image         string                    `json:"image" binding:"omitempty,max=500"`
	Audio         string                    `json:"audio" binding:"omitempty,max=500"`
	Options       map[string]QuestionOption `json:"options" binding:"required"`
	CorrectOption string                    `json:"correct_option" binding:"required,option_letter"`
}
