package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusOngoing    SessionStatus = "ongoing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusTerminated SessionStatus = "terminated"
)

// Valid reports whether the status is one of the known values.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusOngoing, SessionStatusCompleted, SessionStatusTerminated:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusTerminated
}

// Domain errors shared by the session store and the state machine.
var (
	// ErrAlreadyAttempted: a session already exists for this (student, subject)
	// pair. Raised at creation time, before any session object is built.
	ErrAlreadyAttempted = errors.New("student already attempted this subject")

	// ErrAlreadyFinalized: a transition command arrived for a session that is no
	// longer ongoing. Callers treat it as a benign no-op, never as a failure.
	ErrAlreadyFinalized = errors.New("session already finalized")

	// ErrMalformedSession: a stored session record is missing required fields or
	// carries values that would corrupt invariants if acted upon.
	ErrMalformedSession = errors.New("malformed session record")
)

// ExamSession represents one student's single attempt at one subject's exam.
type ExamSession struct {
	ID        uuid.UUID `json:"id"`
	StudentID int       `json:"student_id"`
	SubjectID int       `json:"subject_id"`
	StartTime time.Time `json:"start_time"`
	// EndTime is set exactly once, on the terminal transition.
	EndTime *time.Time `json:"end_time,omitempty"`
	// Answers maps question ID to the chosen option letter. Keys never disappear
	// while the session is ongoing, and the whole map freezes once terminal.
	Answers    map[string]string `json:"answers"`
	Violations int               `json:"violations"`
	Status     SessionStatus     `json:"status"`
	// Score, CorrectCount and WrongCount are stamped on the terminal transition.
	Score        *int `json:"score,omitempty"`
	CorrectCount *int `json:"correct_count,omitempty"`
	WrongCount   *int `json:"wrong_count,omitempty"`
}

// Validate refuses records that would corrupt invariants if acted upon.
func (s *ExamSession) Validate() error {
	if s.ID == uuid.Nil || s.StudentID == 0 || s.SubjectID == 0 {
		return ErrMalformedSession
	}
	if !s.Status.Valid() {
		return ErrMalformedSession
	}
	if s.Violations < 0 {
		return ErrMalformedSession
	}
	if s.Status.Terminal() && s.EndTime == nil {
		return ErrMalformedSession
	}
	return nil
}

// StartSessionRequest is the payload for a student starting an exam.
type StartSessionRequest struct {
	SubjectID int `json:"subject_id" binding:"required"`
}

// ForceFinishRequest is the payload for an admin forcing a terminal transition.
type ForceFinishRequest struct {
	Status SessionStatus `json:"status" binding:"required,oneof=completed terminated"`
}

// SessionState is the recovery payload for a reloading exam client.
type SessionState struct {
	SessionID        uuid.UUID         `json:"session_id"`
	SubjectID        int               `json:"subject_id"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Answers          map[string]string `json:"answers"`
	Violations       int               `json:"violations"`
}
