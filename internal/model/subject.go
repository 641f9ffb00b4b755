package model

import "time"

// Subject represents an examinable subject (mata pelajaran).
type Subject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	// QuestionCount is the target size of the question set shown to students.
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateSubjectRequest is the payload for creating a subject.
type CreateSubjectRequest struct {
	Name          string `json:"name" binding:"required,min=2,max=100"`
	QuestionCount int    `json:"question_count" binding:"required,min=1,max=200"`
}

// UpdateSubjectRequest is the payload for updating a subject.
type UpdateSubjectRequest struct {
	Name          string `json:"name" binding:"required,min=2,max=100"`
	QuestionCount int    `json:"question_count" binding:"required,min=1,max=200"`
}
