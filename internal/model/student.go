package model

import "time"

// Student represents a student user. Students can be pre-provisioned by an
// admin or created on the fly at first successful login.
type Student struct {
	ID                int       `json:"id"`
	ParticipantNumber string    `json:"participant_number"`
	Name              string    `json:"name"`
	ClassName         string    `json:"class_name"`
	PasswordHash      string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication. Name and
// class are used only when the participant number is not yet registered.
type StudentLoginRequest struct {
	ParticipantNumber string `json:"participant_number" binding:"required,min=2,max=30"`
	Name              string `json:"name" binding:"omitempty,min=2,max=100"`
	ClassName         string `json:"class_name" binding:"omitempty,min=1,max=50"`
	Password          string `json:"password" binding:"required,min=4,max=128"`
}

// CreateStudentRequest is the payload for an admin creating a student account.
type CreateStudentRequest struct {
	ParticipantNumber string `json:"participant_number" binding:"required,min=2,max=30"`
	Name              string `json:"name" binding:"required,min=2,max=100"`
	ClassName         string `json:"class_name" binding:"required,min=1,max=50"`
	Password          string `json:"password" binding:"required,min=4,max=128"`
}

// UpdateStudentRequest is the payload for updating an existing student.
type UpdateStudentRequest struct {
	ParticipantNumber string `json:"participant_number" binding:"required,min=2,max=30"`
	Name              string `json:"name" binding:"required,min=2,max=100"`
	ClassName         string `json:"class_name" binding:"required,min=1,max=50"`
	Password          string `json:"password" binding:"omitempty,min=4,max=128"`
}
