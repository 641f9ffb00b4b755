package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smkbandara/cbt-backend/internal/model"
)

// ScheduleRepository handles exam schedule data access.
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// GetBySubject retrieves the schedule for a subject, if one exists.
func (r *ScheduleRepository) GetBySubject(ctx context.Context, subjectID int) (*model.Schedule, error) {
	s := &model.Schedule{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, subject_id, start_time, end_time, is_active, updated_at
		 FROM schedules WHERE subject_id = $1`, subjectID,
	).Scan(&s.ID, &s.SubjectID, &s.StartTime, &s.EndTime, &s.IsActive, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List retrieves all schedules.
func (r *ScheduleRepository) List(ctx context.Context) ([]model.Schedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, subject_id, start_time, end_time, is_active, updated_at
		 FROM schedules ORDER BY start_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		var s model.Schedule
		if err := rows.Scan(&s.ID, &s.SubjectID, &s.StartTime, &s.EndTime, &s.IsActive, &s.UpdatedAt); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// Upsert saves the schedule for a subject, replacing any previous one.
func (r *ScheduleRepository) Upsert(ctx context.Context, subjectID int, start, end time.Time, isActive bool) (*model.Schedule, error) {
	s := &model.Schedule{SubjectID: subjectID, StartTime: start, EndTime: end, IsActive: isActive}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO schedules (subject_id, start_time, end_time, is_active)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (subject_id) DO UPDATE
		 SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
		     is_active = EXCLUDED.is_active, updated_at = NOW()
		 RETURNING id, updated_at`,
		subjectID, start, end, isActive,
	).Scan(&s.ID, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes a subject's schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, subjectID int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE subject_id = $1`, subjectID)
	return err
}
