package model

import "time"

// Schedule gates when students may begin a subject's exam. At most one
// schedule exists per subject; saving replaces any previous one.
type Schedule struct {
	ID        int       `json:"id"`
	SubjectID int       `json:"subject_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open reports whether the schedule permits starting an exam at t.
func (s *Schedule) Open(t time.Time) bool {
	if !s.IsActive {
		return false
	}
	return !t.Before(s.StartTime) && !t.After(s.EndTime)
}

// SaveScheduleRequest is the payload for upserting a subject's schedule.
type SaveScheduleRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	IsActive  *bool     `json:"is_active" binding:"required"`
}
