package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smkbandara/cbt-backend/internal/model"
)

const sessionColumns = `id, student_id, subject_id, start_time, end_time, answers, violations, status, score, correct_count, wrong_count`

// SessionOverview is one row of the proctor monitoring table: session state
// joined with student identity and answer progress.
type SessionOverview struct {
	SessionID         uuid.UUID           `json:"session_id"`
	StudentID         int                 `json:"student_id"`
	ParticipantNumber string              `json:"participant_number"`
	StudentName       string              `json:"student_name"`
	ClassName         string              `json:"class_name"`
	SubjectID         int                 `json:"subject_id"`
	SubjectName       string              `json:"subject_name"`
	StartTime         time.Time           `json:"start_time"`
	Violations        int                 `json:"violations"`
	Status            model.SessionStatus `json:"status"`
	AnsweredCount     int                 `json:"answered_count"`
	QuestionCount     int                 `json:"question_count"`
}

// SessionResult is one graded row of a subject's result listing.
type SessionResult struct {
	SessionID         uuid.UUID           `json:"session_id"`
	StudentID         int                 `json:"student_id"`
	ParticipantNumber string              `json:"participant_number"`
	StudentName       string              `json:"student_name"`
	ClassName         string              `json:"class_name"`
	SubjectName       string              `json:"subject_name"`
	Score             *int                `json:"score"`
	CorrectCount      *int                `json:"correct_count"`
	WrongCount        *int                `json:"wrong_count"`
	Violations        int                 `json:"violations"`
	Status            model.SessionStatus `json:"status"`
	EndTime           *time.Time          `json:"end_time"`
}

// SessionRepository handles exam session data access. Every mutation is
// guarded by a status predicate so that concurrent or replayed commands
// against a finalized session become no-ops at the database level.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new ongoing session. The unique (student_id, subject_id)
// constraint makes this the single enforcement point for the one-attempt
// rule: if any session for the pair already exists, in any status, the
// insert is skipped and ErrAlreadyAttempted is returned.
func (r *SessionRepository) Create(ctx context.Context, studentID, subjectID int) (*model.ExamSession, error) {
	s := &model.ExamSession{
		StudentID: studentID,
		SubjectID: subjectID,
		Answers:   map[string]string{},
		Status:    model.SessionStatusOngoing,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (student_id, subject_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (student_id, subject_id) DO NOTHING
		 RETURNING id, start_time`,
		studentID, subjectID, model.SessionStatusOngoing,
	).Scan(&s.ID, &s.StartTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrAlreadyAttempted
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a session by ID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// GetByStudentAndSubject retrieves the session (if any) for a pair.
func (r *SessionRepository) GetByStudentAndSubject(ctx context.Context, studentID, subjectID int) (*model.ExamSession, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE student_id = $1 AND subject_id = $2`, studentID, subjectID))
}

// ListByStudent retrieves all sessions for a student, newest first.
func (r *SessionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE student_id = $1 ORDER BY start_time DESC`, studentID)
	if err != nil {
		return nil, err
	}
	return r.scanMany(rows)
}

// MergeAnswers folds the given answer map into the stored answers. Existing
// keys are overwritten, absent keys are preserved, and nothing happens once
// the session left the ongoing state.
func (r *SessionRepository) MergeAnswers(ctx context.Context, id uuid.UUID, answers map[string]string) error {
	if len(answers) == 0 {
		return nil
	}
	patch, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET answers = answers || $2::jsonb
		 WHERE id = $1 AND status = $3`,
		id, patch, model.SessionStatusOngoing)
	return err
}

// IncrementViolations bumps the violation counter by one and returns the new
// count. ErrAlreadyFinalized means the session is no longer ongoing and the
// counter was left untouched.
func (r *SessionRepository) IncrementViolations(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET violations = violations + 1
		 WHERE id = $1 AND status = $2
		 RETURNING violations`,
		id, model.SessionStatusOngoing,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrAlreadyFinalized
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Finalize performs the terminal transition, stamping end time, the frozen
// answer set and the grade in one statement. The status predicate guarantees
// at most one caller ever wins; losers get ErrAlreadyFinalized.
func (r *SessionRepository) Finalize(ctx context.Context, id uuid.UUID, status model.SessionStatus, answers map[string]string, score, correct, wrong int) (*model.ExamSession, error) {
	frozen, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}
	s, err := r.scanOne(r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET status = $2, end_time = NOW(), answers = $3::jsonb,
		     score = $4, correct_count = $5, wrong_count = $6
		 WHERE id = $1 AND status = $7
		 RETURNING `+sessionColumns,
		id, status, frozen, score, correct, wrong, model.SessionStatusOngoing))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrAlreadyFinalized
	}
	return s, err
}

// ListOverdue returns ongoing sessions whose start time predates the cutoff.
func (r *SessionRepository) ListOverdue(ctx context.Context, cutoff time.Time) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE status = $1 AND start_time < $2`,
		model.SessionStatusOngoing, cutoff)
	if err != nil {
		return nil, err
	}
	return r.scanMany(rows)
}

// ListOngoingOverview returns all ongoing sessions joined with student and
// subject identity plus answer progress, for the proctor monitor.
func (r *SessionRepository) ListOngoingOverview(ctx context.Context) ([]SessionOverview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT es.id, es.student_id, s.participant_number, s.name, s.class_name,
		        es.subject_id, sub.name, es.start_time, es.violations, es.status,
		        (SELECT COUNT(*) FROM jsonb_object_keys(es.answers)),
		        (SELECT COUNT(*) FROM questions q WHERE q.subject_id = es.subject_id)
		 FROM exam_sessions es
		 JOIN students s ON es.student_id = s.id
		 JOIN subjects sub ON es.subject_id = sub.id
		 WHERE es.status = $1
		 ORDER BY es.start_time`,
		model.SessionStatusOngoing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overviews []SessionOverview
	for rows.Next() {
		var o SessionOverview
		if err := rows.Scan(&o.SessionID, &o.StudentID, &o.ParticipantNumber, &o.StudentName, &o.ClassName,
			&o.SubjectID, &o.SubjectName, &o.StartTime, &o.Violations, &o.Status,
			&o.AnsweredCount, &o.QuestionCount); err != nil {
			return nil, err
		}
		overviews = append(overviews, o)
	}
	return overviews, rows.Err()
}

// ListResultsBySubject returns graded results for a subject, including
// sessions still ongoing (their score columns are NULL).
func (r *SessionRepository) ListResultsBySubject(ctx context.Context, subjectID int) ([]SessionResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT es.id, es.student_id, s.participant_number, s.name, s.class_name,
		        sub.name, es.score, es.correct_count, es.wrong_count,
		        es.violations, es.status, es.end_time
		 FROM exam_sessions es
		 JOIN students s ON es.student_id = s.id
		 JOIN subjects sub ON es.subject_id = sub.id
		 WHERE es.subject_id = $1
		 ORDER BY s.class_name, s.name`,
		subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SessionResult
	for rows.Next() {
		var res SessionResult
		if err := rows.Scan(&res.SessionID, &res.StudentID, &res.ParticipantNumber, &res.StudentName, &res.ClassName,
			&res.SubjectName, &res.Score, &res.CorrectCount, &res.WrongCount,
			&res.Violations, &res.Status, &res.EndTime); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// CountBySubject returns how many sessions exist for a subject, in any state.
func (r *SessionRepository) CountBySubject(ctx context.Context, subjectID int) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE subject_id = $1`, subjectID,
	).Scan(&count)
	return count, err
}

func (r *SessionRepository) scanOne(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(&s.ID, &s.StudentID, &s.SubjectID, &s.StartTime, &s.EndTime,
		&s.Answers, &s.Violations, &s.Status, &s.Score, &s.CorrectCount, &s.WrongCount)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) scanMany(rows pgx.Rows) ([]model.ExamSession, error) {
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := rows.Scan(&s.ID, &s.StudentID, &s.SubjectID, &s.StartTime, &s.EndTime,
			&s.Answers, &s.Violations, &s.Status, &s.Score, &s.CorrectCount, &s.WrongCount); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
