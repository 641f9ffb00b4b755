package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/repository"
)

// ErrIncompleteOptions is returned when a question does not carry all five
// option letters.
var ErrIncompleteOptions = errors.New("question must define options A through E")

// QuestionService owns question authoring and the student-safe paper view.
type QuestionService struct {
	repo     *repository.QuestionRepository
	subjects *repository.SubjectRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(repo *repository.QuestionRepository, subjects *repository.SubjectRepository) *QuestionService {
	return &QuestionService{repo: repo, subjects: subjects}
}

// ListBySubject retrieves a subject's full question set, answers included.
// Admin use only.
func (s *QuestionService) ListBySubject(ctx context.Context, subjectID int) ([]model.Question, error) {
	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		return nil, err
	}
	return s.repo.ListBySubject(ctx, subjectID)
}

// Paper retrieves a subject's question set stripped of correct options,
// safe to hand to an exam client.
func (s *QuestionService) Paper(ctx context.Context, subjectID int) ([]model.QuestionForStudent, error) {
	questions, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	paper := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		paper[i] = questions[i].ForStudent()
	}
	return paper, nil
}

// Create adds a question to a subject.
func (s *QuestionService) Create(ctx context.Context, subjectID int, req *model.SaveQuestionRequest) (*model.Question, error) {
	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		return nil, err
	}
	if err := validateOptions(req); err != nil {
		return nil, err
	}

	q := &model.Question{
		SubjectID:     subjectID,
		Text:          req.Text,
		Image:         req.Image,
		Audio:         req.Audio,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Update replaces a question's content.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.SaveQuestionRequest) (*model.Question, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateOptions(req); err != nil {
		return nil, err
	}

	existing.Text = req.Text
	existing.Image = req.Image
	existing.Audio = req.Audio
	existing.Options = req.Options
	existing.CorrectOption = req.CorrectOption
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func validateOptions(req *model.SaveQuestionRequest) error {
	for _, letter := range model.OptionLetters {
		opt, ok := req.Options[letter]
		if !ok || opt.Text == "" && opt.Image == "" && opt.Audio == "" {
			return fmt.Errorf("%w: missing %s", ErrIncompleteOptions, letter)
		}
	}
	return nil
}
