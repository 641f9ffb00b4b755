package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smkbandara/cbt-backend/internal/model"
)

// QuestionRepository handles question data access. Options are stored as a
// jsonb document keyed by option letter.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetByID retrieves a question by ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, subject_id, text, image, audio, options, correct_option
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.SubjectID, &q.Text, &q.Image, &q.Audio, &q.Options, &q.CorrectOption)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListBySubject retrieves all questions for a subject in creation order.
func (r *QuestionRepository) ListBySubject(ctx context.Context, subjectID int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, subject_id, text, image, audio, options, correct_option
		 FROM questions WHERE subject_id = $1
		 ORDER BY created_at`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.SubjectID, &q.Text, &q.Image, &q.Audio, &q.Options, &q.CorrectOption); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (subject_id, text, image, audio, options, correct_option)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		 RETURNING id`,
		q.SubjectID, q.Text, q.Image, q.Audio, options, q.CorrectOption,
	).Scan(&q.ID)
}

// Update replaces a question's content.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE questions
		 SET text = $2, image = $3, audio = $4, options = $5::jsonb, correct_option = $6, updated_at = NOW()
		 WHERE id = $1`,
		q.ID, q.Text, q.Image, q.Audio, options, q.CorrectOption)
	return err
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// CountBySubject returns the number of questions stored per subject.
func (r *QuestionRepository) CountBySubject(ctx context.Context) (map[int]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT subject_id, COUNT(*) FROM questions GROUP BY subject_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var subjectID, count int
		if err := rows.Scan(&subjectID, &count); err != nil {
			return nil, err
		}
		counts[subjectID] = count
	}
	return counts, rows.Err()
}
