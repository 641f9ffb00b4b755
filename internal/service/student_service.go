package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/repository"
)

// ErrNameRequired is returned when a first-time login omits the identity
// fields needed to provision the account.
var ErrNameRequired = errors.New("name and class are required for first login")

// StudentService owns student accounts. Login is find-or-create: an unknown
// participant number with a name and class provisions the account on the
// spot, so exam day needs no pre-registration step.
type StudentService struct {
	repo *repository.StudentRepository
	auth *AuthService
	log  zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(repo *repository.StudentRepository, auth *AuthService, log zerolog.Logger) *StudentService {
	return &StudentService{
		repo: repo,
		auth: auth,
		log:  log.With().Str("component", "student_service").Logger(),
	}
}

// Authenticate resolves a login request to a student, creating the account
// when the participant number is unknown and identity fields are present.
func (s *StudentService) Authenticate(ctx context.Context, req *model.StudentLoginRequest) (*model.Student, error) {
	student, err := s.repo.GetByParticipantNumber(ctx, req.ParticipantNumber)
	if err == nil {
		if err := s.auth.CheckPassword(student.PasswordHash, req.Password); err != nil {
			return nil, err
		}
		return student, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup student: %w", err)
	}

	if req.Name == "" || req.ClassName == "" {
		return nil, ErrNameRequired
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	student = &model.Student{
		ParticipantNumber: req.ParticipantNumber,
		Name:              req.Name,
		ClassName:         req.ClassName,
		PasswordHash:      hash,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicateParticipant) {
			// Concurrent first login won the insert. Re-read and verify.
			return s.Authenticate(ctx, &model.StudentLoginRequest{
				ParticipantNumber: req.ParticipantNumber,
				Password:          req.Password,
			})
		}
		return nil, err
	}

	s.log.Info().
		Int("student_id", student.ID).
		Str("participant_number", student.ParticipantNumber).
		Msg("Student account provisioned at first login")
	return student, nil
}

// GetByID retrieves a student.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.repo.GetByID(ctx, id)
}

// Create registers a student account from the admin panel.
func (s *StudentService) Create(ctx context.Context, req *model.CreateStudentRequest) (*model.Student, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	student := &model.Student{
		ParticipantNumber: req.ParticipantNumber,
		Name:              req.Name,
		ClassName:         req.ClassName,
		PasswordHash:      hash,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// Update modifies a student account. An empty password keeps the current one.
func (s *StudentService) Update(ctx context.Context, id int, req *model.UpdateStudentRequest) error {
	var hash *string
	if req.Password != "" {
		h, err := s.auth.HashPassword(req.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hash = &h
	}
	return s.repo.Update(ctx, id, req.ParticipantNumber, req.Name, req.ClassName, hash)
}

// Delete removes a student account.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// List retrieves students with pagination and optional class filter.
func (s *StudentService) List(ctx context.Context, className *string, page, perPage int) ([]model.Student, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.repo.ListPaginated(ctx, className, perPage, (page-1)*perPage)
}

// ListAll retrieves every student for export.
func (s *StudentService) ListAll(ctx context.Context) ([]model.Student, error) {
	return s.repo.ListAll(ctx)
}

// ListClassNames returns the distinct class names currently in use.
func (s *StudentService) ListClassNames(ctx context.Context) ([]string, error) {
	return s.repo.ListClassNames(ctx)
}
