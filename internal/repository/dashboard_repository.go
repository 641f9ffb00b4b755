package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smkbandara/cbt-backend/internal/model"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (totalStudents, totalSubjects, totalQuestions, totalSessions int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(*) FROM subjects),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM exam_sessions)`,
	).Scan(&totalStudents, &totalSubjects, &totalQuestions, &totalSessions)
	return
}

// GetSessionStatusCounts retrieves the distribution of sessions by status.
func (r *DashboardRepository) GetSessionStatusCounts(ctx context.Context) (map[model.SessionStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM exam_sessions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.SessionStatus]int)
	for rows.Next() {
		var status model.SessionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DashboardUpcomingSchedule represents minimal data for upcoming exam windows.
type DashboardUpcomingSchedule struct {
	SubjectID   int       `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// GetUpcomingSchedules retrieves the next N active schedules that have not
// yet closed.
func (r *DashboardRepository) GetUpcomingSchedules(ctx context.Context, limit int) ([]DashboardUpcomingSchedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sc.subject_id, sub.name, sc.start_time, sc.end_time
		 FROM schedules sc
		 JOIN subjects sub ON sc.subject_id = sub.id
		 WHERE sc.is_active AND sc.end_time > NOW()
		 ORDER BY sc.start_time ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []DashboardUpcomingSchedule
	for rows.Next() {
		var s DashboardUpcomingSchedule
		if err := rows.Scan(&s.SubjectID, &s.SubjectName, &s.StartTime, &s.EndTime); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}
