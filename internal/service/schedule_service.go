package service

import (
	"context"

	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/repository"
)

// ScheduleService owns exam window administration.
type ScheduleService struct {
	repo     *repository.ScheduleRepository
	subjects *repository.SubjectRepository
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(repo *repository.ScheduleRepository, subjects *repository.SubjectRepository) *ScheduleService {
	return &ScheduleService{repo: repo, subjects: subjects}
}

// List retrieves all schedules.
func (s *ScheduleService) List(ctx context.Context) ([]model.Schedule, error) {
	return s.repo.List(ctx)
}

// Save upserts a subject's exam window.
func (s *ScheduleService) Save(ctx context.Context, subjectID int, req *model.SaveScheduleRequest) (*model.Schedule, error) {
	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, subjectID, req.StartTime, req.EndTime, *req.IsActive)
}

// Delete removes a subject's exam window, leaving the subject open.
func (s *ScheduleService) Delete(ctx context.Context, subjectID int) error {
	return s.repo.Delete(ctx, subjectID)
}
