package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/smkbandara/cbt-backend/internal/config"
	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/repository"
	"github.com/smkbandara/cbt-backend/internal/scoring"
)

// Session lifecycle errors surfaced to handlers.
var (
	ErrScheduleClosed  = errors.New("exam schedule is not open")
	ErrNoQuestions     = errors.New("subject has no questions")
	ErrSessionNotOwned = errors.New("session does not belong to this student")
)

// SessionStore is the persistence contract for exam sessions. The concrete
// implementation guards every mutation with a status predicate; fakes in
// tests must do the same.
type SessionStore interface {
	Create(ctx context.Context, studentID, subjectID int) (*model.ExamSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	GetByStudentAndSubject(ctx context.Context, studentID, subjectID int) (*model.ExamSession, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.ExamSession, error)
	MergeAnswers(ctx context.Context, id uuid.UUID, answers map[string]string) error
	IncrementViolations(ctx context.Context, id uuid.UUID) (int, error)
	Finalize(ctx context.Context, id uuid.UUID, status model.SessionStatus, answers map[string]string, score, correct, wrong int) (*model.ExamSession, error)
	ListOverdue(ctx context.Context, cutoff time.Time) ([]model.ExamSession, error)
}

// QuestionSource supplies a subject's question set for grading and delivery.
type QuestionSource interface {
	ListBySubject(ctx context.Context, subjectID int) ([]model.Question, error)
}

// ScheduleSource supplies the optional exam window for a subject.
type ScheduleSource interface {
	GetBySubject(ctx context.Context, subjectID int) (*model.Schedule, error)
}

// StudentSource and SubjectSource supply identity data for result reporting.
type StudentSource interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
}

type SubjectSource interface {
	GetByID(ctx context.Context, id int) (*model.Subject, error)
}

// AnswerStash is the live answer overlay (Redis hash in production).
type AnswerStash interface {
	Save(ctx context.Context, sessionID uuid.UUID, questionID, answer string) error
	GetAll(ctx context.Context, sessionID uuid.UUID) (map[string]string, error)
	Clear(ctx context.Context, sessionID uuid.UUID) error
}

// EventQueue is the producer side of the worker queues.
type EventQueue interface {
	EnqueueAnswer(ctx context.Context, p *repository.AnswerPersistPayload) error
	EnqueueViolation(ctx context.Context, e *model.ViolationEvent) error
	EnqueueResult(ctx context.Context, p *model.ResultPayload) error
}

// ViolationOutcome tells the caller what a violation signal caused.
type ViolationOutcome struct {
	// Count is the session's violation total after this signal.
	Count int `json:"count"`
	// Counted is false for suppressed signals (context menu).
	Counted bool `json:"counted"`
	// AutoSubmitted is true when this signal reached the ceiling and the
	// session was finalized as a result.
	AutoSubmitted bool `json:"auto_submitted"`
	Session       *model.ExamSession `json:"-"`
}

// SessionService owns the exam attempt state machine: one attempt per
// (student, subject), a fixed countdown, a violation ceiling and exactly one
// terminal transition per session.
type SessionService struct {
	cfg       *config.Config
	store     SessionStore
	questions QuestionSource
	schedules ScheduleSource
	students  StudentSource
	subjects  SubjectSource
	stash     AnswerStash
	queue     EventQueue
	log       zerolog.Logger
	now       func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	store SessionStore,
	questions QuestionSource,
	schedules ScheduleSource,
	students StudentSource,
	subjects SubjectSource,
	stash AnswerStash,
	queue EventQueue,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:       cfg,
		store:     store,
		questions: questions,
		schedules: schedules,
		students:  students,
		subjects:  subjects,
		stash:     stash,
		queue:     queue,
		log:       log.With().Str("component", "session_service").Logger(),
		now:       time.Now,
	}
}

// Start begins a student's single attempt at a subject. The attempt is
// refused when the subject has a schedule that is closed, when the subject
// has no questions, or when any session for the pair already exists.
func (s *SessionService) Start(ctx context.Context, studentID, subjectID int) (*model.ExamSession, error) {
	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		return nil, err
	}

	schedule, err := s.schedules.GetBySubject(ctx, subjectID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	// A subject without a schedule is open; an existing schedule must admit now.
	if schedule != nil && !schedule.Open(s.now()) {
		return nil, ErrScheduleClosed
	}

	questions, err := s.questions.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	session, err := s.store.Create(ctx, studentID, subjectID)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("student_id", studentID).
		Int("subject_id", subjectID).
		Msg("Exam session started")
	return session, nil
}

// Get returns a session after verifying ownership.
func (s *SessionService) Get(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.ExamSession, error) {
	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.StudentID != studentID {
		return nil, ErrSessionNotOwned
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return session, nil
}

// State builds the recovery payload for a reloading client: merged answers,
// the violation count and the remaining countdown.
func (s *SessionService) State(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.SessionState, error) {
	session, err := s.Get(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, model.ErrAlreadyFinalized
	}

	answers, err := s.mergedAnswers(ctx, session)
	if err != nil {
		return nil, err
	}

	remaining := s.cfg.ExamDuration - s.now().Sub(session.StartTime)
	if remaining < 0 {
		remaining = 0
	}

	return &model.SessionState{
		SessionID:        session.ID,
		SubjectID:        session.SubjectID,
		RemainingSeconds: int(remaining.Seconds()),
		Answers:          answers,
		Violations:       session.Violations,
	}, nil
}

// SaveAnswer records one autosaved answer. The write lands in the live stash
// immediately and is queued for batch persistence; a finalized session
// returns ErrAlreadyFinalized and records nothing.
func (s *SessionService) SaveAnswer(ctx context.Context, sessionID uuid.UUID, studentID int, questionID, answer string) error {
	session, err := s.Get(ctx, sessionID, studentID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return model.ErrAlreadyFinalized
	}

	if err := s.stash.Save(ctx, sessionID, questionID, answer); err != nil {
		return fmt.Errorf("stash answer: %w", err)
	}

	if err := s.queue.EnqueueAnswer(ctx, &repository.AnswerPersistPayload{
		SessionID:  sessionID.String(),
		QuestionID: questionID,
		Answer:     answer,
	}); err != nil {
		// The stash already holds the answer; persistence catches up at the
		// terminal merge even if this enqueue is lost.
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Enqueue answer failed")
	}
	return nil
}

// RecordViolation applies one anti-cheat signal to the session. Suppressed
// signals leave the counter untouched; counted signals that reach the
// ceiling auto-submit the attempt.
func (s *SessionService) RecordViolation(ctx context.Context, sessionID uuid.UUID, studentID int, signal model.ViolationSignal) (*ViolationOutcome, error) {
	session, err := s.Get(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, model.ErrAlreadyFinalized
	}

	if !signal.Counts() {
		return &ViolationOutcome{Count: session.Violations, Counted: false}, nil
	}

	count, err := s.store.IncrementViolations(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyFinalized) {
			// Lost the race against another finalizer. Nothing to count.
			return nil, model.ErrAlreadyFinalized
		}
		return nil, err
	}

	if err := s.queue.EnqueueViolation(ctx, &model.ViolationEvent{
		SessionID: sessionID.String(),
		StudentID: studentID,
		Signal:    signal,
		Timestamp: s.now().Unix(),
	}); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Enqueue violation failed")
	}

	outcome := &ViolationOutcome{Count: count, Counted: true}
	if count >= s.cfg.MaxViolations {
		finished, err := s.finish(ctx, session, model.SessionStatusCompleted)
		if err != nil && !errors.Is(err, model.ErrAlreadyFinalized) {
			return nil, err
		}
		outcome.AutoSubmitted = true
		outcome.Session = finished
	}
	return outcome, nil
}

// Submit finalizes the session as completed at the student's request.
// Duplicate submits are benign no-ops reported as ErrAlreadyFinalized.
func (s *SessionService) Submit(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.ExamSession, error) {
	session, err := s.Get(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, session, model.SessionStatusCompleted)
}

// ForceFinish finalizes any session on behalf of a proctor, either as
// completed (graded normally) or terminated.
func (s *SessionService) ForceFinish(ctx context.Context, sessionID uuid.UUID, status model.SessionStatus) (*model.ExamSession, error) {
	if !status.Terminal() {
		return nil, model.ErrMalformedSession
	}
	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return s.finish(ctx, session, status)
}

// ExpireOverdue finalizes every ongoing session whose countdown has run out.
// Returns how many sessions this sweep actually finalized.
func (s *SessionService) ExpireOverdue(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.ExamDuration)
	overdue, err := s.store.ListOverdue(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		session := overdue[i]
		if _, err := s.finish(ctx, &session, model.SessionStatusCompleted); err != nil {
			if errors.Is(err, model.ErrAlreadyFinalized) {
				continue
			}
			s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Expiry finalize failed")
			continue
		}
		expired++
	}
	return expired, nil
}

// finish is the only terminal transition path. It merges the live answer
// overlay into the persisted answers, grades the attempt, and relies on the
// store's guarded update to ensure at most one winner per session. Only the
// winner publishes the result report.
func (s *SessionService) finish(ctx context.Context, session *model.ExamSession, status model.SessionStatus) (*model.ExamSession, error) {
	if session.Status.Terminal() {
		return nil, model.ErrAlreadyFinalized
	}

	answers, err := s.mergedAnswers(ctx, session)
	if err != nil {
		return nil, err
	}

	questions, err := s.questions.ListBySubject(ctx, session.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	result := scoring.Score(answers, questions)

	finalized, err := s.store.Finalize(ctx, session.ID, status, answers, result.Percentage, result.Correct, result.Wrong)
	if err != nil {
		return nil, err
	}

	if err := s.stash.Clear(ctx, session.ID); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Clear answer stash failed")
	}

	s.publishResult(ctx, finalized)

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("status", string(status)).
		Int("score", result.Percentage).
		Msg("Exam session finalized")
	return finalized, nil
}

// publishResult queues the one-shot result report. Failures are logged and
// never affect the already-committed terminal transition.
func (s *SessionService) publishResult(ctx context.Context, session *model.ExamSession) {
	student, err := s.students.GetByID(ctx, session.StudentID)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Result report: student lookup failed")
		return
	}
	subject, err := s.subjects.GetByID(ctx, session.SubjectID)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Result report: subject lookup failed")
		return
	}

	payload := &model.ResultPayload{
		Timestamp:         s.now().Format(time.RFC3339),
		ParticipantNumber: student.ParticipantNumber,
		Name:              student.Name,
		ClassName:         student.ClassName,
		Subject:           subject.Name,
		Violations:        session.Violations,
		Status:            session.Status,
	}
	if session.Score != nil {
		payload.Score = *session.Score
	}
	if session.CorrectCount != nil {
		payload.Correct = *session.CorrectCount
	}
	if session.WrongCount != nil {
		payload.Wrong = *session.WrongCount
	}

	if err := s.queue.EnqueueResult(ctx, payload); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Result report enqueue failed")
	}
}

// mergedAnswers overlays the live stash on top of the persisted answers.
// The stash is always at least as fresh as the jsonb column.
func (s *SessionService) mergedAnswers(ctx context.Context, session *model.ExamSession) (map[string]string, error) {
	merged := make(map[string]string, len(session.Answers))
	for k, v := range session.Answers {
		merged[k] = v
	}

	live, err := s.stash.GetAll(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("read answer stash: %w", err)
	}
	for k, v := range live {
		merged[k] = v
	}
	return merged, nil
}
