package service

import (
	"context"

	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/repository"
)

// DashboardSummary is the admin landing page payload.
type DashboardSummary struct {
	TotalStudents     int                                    `json:"total_students"`
	TotalSubjects     int                                    `json:"total_subjects"`
	TotalQuestions    int                                    `json:"total_questions"`
	TotalSessions     int                                    `json:"total_sessions"`
	SessionsByStatus  map[model.SessionStatus]int            `json:"sessions_by_status"`
	UpcomingSchedules []repository.DashboardUpcomingSchedule `json:"upcoming_schedules"`
}

// DashboardService aggregates counts for the admin landing page.
type DashboardService struct {
	repo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// Summary builds the full dashboard payload.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	students, subjects, questions, sessions, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	byStatus, err := s.repo.GetSessionStatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	upcoming, err := s.repo.GetUpcomingSchedules(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		TotalStudents:     students,
		TotalSubjects:     subjects,
		TotalQuestions:    questions,
		TotalSessions:     sessions,
		SessionsByStatus:  byStatus,
		UpcomingSchedules: upcoming,
	}, nil
}
