package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/repository"
)

// ErrSubjectInUse is returned when deleting a subject that already has exam
// sessions. Attempt history is immutable, so the subject must stay.
var ErrSubjectInUse = errors.New("subject has exam sessions and cannot be deleted")

// SubjectAttemptState describes a subject from one student's point of view.
type SubjectAttemptState struct {
	Subject model.Subject `json:"subject"`
	// Attempted is true when the student has any session for this subject.
	Attempted bool                 `json:"attempted"`
	Status    *model.SessionStatus `json:"status,omitempty"`
	// ScheduleOpen is false when a schedule exists and does not admit now.
	ScheduleOpen bool `json:"schedule_open"`
}

// SubjectService owns subjects and their student-facing availability view.
type SubjectService struct {
	repo      *repository.SubjectRepository
	sessions  *repository.SessionRepository
	schedules *repository.ScheduleRepository
	now       func() time.Time
}

// NewSubjectService creates a new SubjectService.
func NewSubjectService(repo *repository.SubjectRepository, sessions *repository.SessionRepository, schedules *repository.ScheduleRepository) *SubjectService {
	return &SubjectService{repo: repo, sessions: sessions, schedules: schedules, now: time.Now}
}

// GetByID retrieves a subject.
func (s *SubjectService) GetByID(ctx context.Context, id int) (*model.Subject, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves all subjects.
func (s *SubjectService) List(ctx context.Context) ([]model.Subject, error) {
	return s.repo.List(ctx)
}

// ListForStudent returns all subjects annotated with the student's attempt
// state and schedule availability.
func (s *SubjectService) ListForStudent(ctx context.Context, studentID int) ([]SubjectAttemptState, error) {
	subjects, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	bySubject := make(map[int]*model.ExamSession, len(sessions))
	for i := range sessions {
		bySubject[sessions[i].SubjectID] = &sessions[i]
	}

	now := s.now()
	states := make([]SubjectAttemptState, 0, len(subjects))
	for _, subject := range subjects {
		state := SubjectAttemptState{Subject: subject, ScheduleOpen: true}

		if session, ok := bySubject[subject.ID]; ok {
			state.Attempted = true
			status := session.Status
			state.Status = &status
		}

		schedule, err := s.schedules.GetBySubject(ctx, subject.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if schedule != nil {
			state.ScheduleOpen = schedule.Open(now)
		}

		states = append(states, state)
	}
	return states, nil
}

// Create inserts a new subject.
func (s *SubjectService) Create(ctx context.Context, req *model.CreateSubjectRequest) (*model.Subject, error) {
	subject := &model.Subject{Name: req.Name, QuestionCount: req.QuestionCount}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

// Update modifies a subject.
func (s *SubjectService) Update(ctx context.Context, id int, req *model.UpdateSubjectRequest) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, req.Name, req.QuestionCount)
}

// Delete removes a subject. Refused while any exam session references it,
// because attempt history must survive.
func (s *SubjectService) Delete(ctx context.Context, id int) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	count, err := s.sessions.CountBySubject(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrSubjectInUse
	}
	return s.repo.Delete(ctx, id)
}
