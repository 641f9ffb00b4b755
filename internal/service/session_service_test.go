package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/smkbandara/cbt-backend/internal/config"
	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/repository"
)

// ─── Fakes ──────────────────────────────────────────────────────────────

type fakeStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.ExamSession
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[uuid.UUID]*model.ExamSession)}
}

func (f *fakeStore) Create(_ context.Context, studentID, subjectID int) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.StudentID == studentID && s.SubjectID == subjectID {
			return nil, model.ErrAlreadyAttempted
		}
	}
	s := &model.ExamSession{
		ID:        uuid.New(),
		StudentID: studentID,
		SubjectID: subjectID,
		StartTime: time.Now(),
		Answers:   map[string]string{},
		Status:    model.SessionStatusOngoing,
	}
	f.sessions[s.ID] = s
	return f.clone(s), nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return f.clone(s), nil
}

func (f *fakeStore) GetByStudentAndSubject(_ context.Context, studentID, subjectID int) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.StudentID == studentID && s.SubjectID == subjectID {
			return f.clone(s), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) ListByStudent(_ context.Context, studentID int) ([]model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ExamSession
	for _, s := range f.sessions {
		if s.StudentID == studentID {
			out = append(out, *f.clone(s))
		}
	}
	return out, nil
}

func (f *fakeStore) MergeAnswers(_ context.Context, id uuid.UUID, answers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != model.SessionStatusOngoing {
		return nil
	}
	for k, v := range answers {
		s.Answers[k] = v
	}
	return nil
}

func (f *fakeStore) IncrementViolations(_ context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != model.SessionStatusOngoing {
		return 0, model.ErrAlreadyFinalized
	}
	s.Violations++
	return s.Violations, nil
}

func (f *fakeStore) Finalize(_ context.Context, id uuid.UUID, status model.SessionStatus, answers map[string]string, score, correct, wrong int) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != model.SessionStatusOngoing {
		return nil, model.ErrAlreadyFinalized
	}
	now := time.Now()
	s.Status = status
	s.EndTime = &now
	s.Answers = answers
	s.Score = &score
	s.CorrectCount = &correct
	s.WrongCount = &wrong
	return f.clone(s), nil
}

func (f *fakeStore) ListOverdue(_ context.Context, cutoff time.Time) ([]model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ExamSession
	for _, s := range f.sessions {
		if s.Status == model.SessionStatusOngoing && s.StartTime.Before(cutoff) {
			out = append(out, *f.clone(s))
		}
	}
	return out, nil
}

func (f *fakeStore) clone(s *model.ExamSession) *model.ExamSession {
	c := *s
	c.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	return &c
}

type fakeQuestions struct {
	bySubject map[int][]model.Question
}

func (f *fakeQuestions) ListBySubject(_ context.Context, subjectID int) ([]model.Question, error) {
	return f.bySubject[subjectID], nil
}

type fakeSchedules struct {
	bySubject map[int]*model.Schedule
}

func (f *fakeSchedules) GetBySubject(_ context.Context, subjectID int) (*model.Schedule, error) {
	s, ok := f.bySubject[subjectID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

type fakeStudents struct{}

func (fakeStudents) GetByID(_ context.Context, id int) (*model.Student, error) {
	return &model.Student{ID: id, ParticipantNumber: "P-001", Name: "Siti", ClassName: "XII RPL 1"}, nil
}

type fakeSubjects struct{}

func (fakeSubjects) GetByID(_ context.Context, id int) (*model.Subject, error) {
	return &model.Subject{ID: id, Name: "Matematika", QuestionCount: 4}, nil
}

type fakeStash struct {
	mu      sync.Mutex
	answers map[uuid.UUID]map[string]string
}

func newFakeStash() *fakeStash {
	return &fakeStash{answers: make(map[uuid.UUID]map[string]string)}
}

func (f *fakeStash) Save(_ context.Context, sessionID uuid.UUID, questionID, answer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.answers[sessionID] == nil {
		f.answers[sessionID] = make(map[string]string)
	}
	f.answers[sessionID][questionID] = answer
	return nil
}

func (f *fakeStash) GetAll(_ context.Context, sessionID uuid.UUID) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.answers[sessionID]))
	for k, v := range f.answers[sessionID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStash) Clear(_ context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.answers, sessionID)
	return nil
}

type fakeQueue struct {
	mu         sync.Mutex
	results    []*model.ResultPayload
	violations []*model.ViolationEvent
}

func (f *fakeQueue) EnqueueAnswer(_ context.Context, _ *repository.AnswerPersistPayload) error {
	return nil
}

func (f *fakeQueue) EnqueueViolation(_ context.Context, e *model.ViolationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.violations = append(f.violations, e)
	return nil
}

func (f *fakeQueue) EnqueueResult(_ context.Context, p *model.ResultPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, p)
	return nil
}

func (f *fakeQueue) resultCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

// ─── Harness ────────────────────────────────────────────────────────────

type harness struct {
	svc       *SessionService
	store     *fakeStore
	questions *fakeQuestions
	schedules *fakeSchedules
	stash     *fakeStash
	queue     *fakeQueue
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	questions := make([]model.Question, 4)
	for i := range questions {
		questions[i] = model.Question{ID: uuid.New(), SubjectID: 1, CorrectOption: "A"}
	}

	h := &harness{
		store:     newFakeStore(),
		questions: &fakeQuestions{bySubject: map[int][]model.Question{1: questions}},
		schedules: &fakeSchedules{bySubject: map[int]*model.Schedule{}},
		stash:     newFakeStash(),
		queue:     &fakeQueue{},
	}

	cfg := &config.Config{
		ExamDuration:  90 * time.Minute,
		MaxViolations: 5,
	}
	h.svc = NewSessionService(cfg, h.store, h.questions, h.schedules,
		fakeStudents{}, fakeSubjects{}, h.stash, h.queue, zerolog.Nop())
	return h
}

func (h *harness) subjectQuestions() []model.Question {
	return h.questions.bySubject[1]
}

// ─── Tests ──────────────────────────────────────────────────────────────

func TestStartRejectsSecondAttempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, err := h.svc.Start(ctx, 7, 1)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	if session.Status != model.SessionStatusOngoing {
		t.Fatalf("status = %s, want ongoing", session.Status)
	}

	if _, err := h.svc.Start(ctx, 7, 1); !errors.Is(err, model.ErrAlreadyAttempted) {
		t.Fatalf("second start err = %v, want ErrAlreadyAttempted", err)
	}

	// Still rejected after the first attempt is finalized.
	if _, err := h.svc.Submit(ctx, session.ID, 7); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := h.svc.Start(ctx, 7, 1); !errors.Is(err, model.ErrAlreadyAttempted) {
		t.Fatalf("start after submit err = %v, want ErrAlreadyAttempted", err)
	}
}

func TestStartRespectsSchedule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.schedules.bySubject[1] = &model.Schedule{
		SubjectID: 1,
		StartTime: time.Now().Add(time.Hour),
		EndTime:   time.Now().Add(2 * time.Hour),
		IsActive:  true,
	}
	if _, err := h.svc.Start(ctx, 7, 1); !errors.Is(err, ErrScheduleClosed) {
		t.Fatalf("err = %v, want ErrScheduleClosed", err)
	}

	// Inactive schedules close the subject even inside the window.
	h.schedules.bySubject[1] = &model.Schedule{
		SubjectID: 1,
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
		IsActive:  false,
	}
	if _, err := h.svc.Start(ctx, 7, 1); !errors.Is(err, ErrScheduleClosed) {
		t.Fatalf("inactive err = %v, want ErrScheduleClosed", err)
	}

	// An open window admits the student.
	h.schedules.bySubject[1].IsActive = true
	if _, err := h.svc.Start(ctx, 7, 1); err != nil {
		t.Fatalf("open window start: %v", err)
	}
}

func TestStartRequiresQuestions(t *testing.T) {
	h := newHarness(t)
	h.questions.bySubject[1] = nil

	if _, err := h.svc.Start(context.Background(), 7, 1); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestSaveAnswerMergesIntoState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	qs := h.subjectQuestions()

	session, err := h.svc.Start(ctx, 7, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// One answer already persisted, one only in the live stash, one revised.
	h.store.sessions[session.ID].Answers[qs[0].ID.String()] = "B"
	if err := h.svc.SaveAnswer(ctx, session.ID, 7, qs[0].ID.String(), "A"); err != nil {
		t.Fatalf("save revised: %v", err)
	}
	if err := h.svc.SaveAnswer(ctx, session.ID, 7, qs[1].ID.String(), "C"); err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	state, err := h.svc.State(ctx, session.ID, 7)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if got := state.Answers[qs[0].ID.String()]; got != "A" {
		t.Errorf("revised answer = %q, want stash value A", got)
	}
	if got := state.Answers[qs[1].ID.String()]; got != "C" {
		t.Errorf("fresh answer = %q, want C", got)
	}
	if state.RemainingSeconds <= 0 || state.RemainingSeconds > 90*60 {
		t.Errorf("remaining = %d, want within (0, 5400]", state.RemainingSeconds)
	}
}

func TestSaveAnswerRejectedAfterFinalize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	qs := h.subjectQuestions()

	session, _ := h.svc.Start(ctx, 7, 1)
	if _, err := h.svc.Submit(ctx, session.ID, 7); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := h.svc.SaveAnswer(ctx, session.ID, 7, qs[0].ID.String(), "A")
	if !errors.Is(err, model.ErrAlreadyFinalized) {
		t.Fatalf("err = %v, want ErrAlreadyFinalized", err)
	}
}

func TestSaveAnswerOwnershipEnforced(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	qs := h.subjectQuestions()

	session, _ := h.svc.Start(ctx, 7, 1)
	err := h.svc.SaveAnswer(ctx, session.ID, 8, qs[0].ID.String(), "A")
	if !errors.Is(err, ErrSessionNotOwned) {
		t.Fatalf("err = %v, want ErrSessionNotOwned", err)
	}
}

func TestContextMenuSuppressedNotCounted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, _ := h.svc.Start(ctx, 7, 1)

	outcome, err := h.svc.RecordViolation(ctx, session.ID, 7, model.SignalContextMenu)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if outcome.Counted {
		t.Error("context menu signal was counted")
	}
	if outcome.Count != 0 {
		t.Errorf("count = %d, want 0", outcome.Count)
	}

	got, _ := h.svc.Get(ctx, session.ID, 7)
	if got.Violations != 0 {
		t.Errorf("stored violations = %d, want 0", got.Violations)
	}
}

func TestViolationCeilingAutoSubmits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	qs := h.subjectQuestions()

	session, _ := h.svc.Start(ctx, 7, 1)
	// Answer two of four correctly before the ceiling hits.
	_ = h.svc.SaveAnswer(ctx, session.ID, 7, qs[0].ID.String(), "A")
	_ = h.svc.SaveAnswer(ctx, session.ID, 7, qs[1].ID.String(), "A")

	signals := []model.ViolationSignal{
		model.SignalFocusLoss, model.SignalCopy, model.SignalPaste,
		model.SignalDevtoolsKey, model.SignalFocusLoss,
	}
	var last *ViolationOutcome
	for i, sig := range signals {
		outcome, err := h.svc.RecordViolation(ctx, session.ID, 7, sig)
		if err != nil {
			t.Fatalf("signal %d: %v", i, err)
		}
		if outcome.Count != i+1 {
			t.Fatalf("signal %d count = %d, want %d", i, outcome.Count, i+1)
		}
		last = outcome
	}

	if !last.AutoSubmitted {
		t.Fatal("fifth violation did not auto-submit")
	}
	final, _ := h.svc.Get(ctx, session.ID, 7)
	if final.Status != model.SessionStatusCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
	if final.Score == nil || *final.Score != 50 {
		t.Errorf("score = %v, want 50", final.Score)
	}
	if final.Violations != 5 {
		t.Errorf("violations = %d, want 5", final.Violations)
	}
	if n := h.queue.resultCount(); n != 1 {
		t.Errorf("result reports = %d, want exactly 1", n)
	}

	// Further signals after the terminal transition are no-ops.
	if _, err := h.svc.RecordViolation(ctx, session.ID, 7, model.SignalCopy); !errors.Is(err, model.ErrAlreadyFinalized) {
		t.Fatalf("post-terminal signal err = %v, want ErrAlreadyFinalized", err)
	}
	if final, _ = h.svc.Get(ctx, session.ID, 7); final.Violations != 5 {
		t.Errorf("violations after terminal = %d, want frozen at 5", final.Violations)
	}
}

func TestSubmitGradesAndReportsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	qs := h.subjectQuestions()

	session, _ := h.svc.Start(ctx, 7, 1)
	_ = h.svc.SaveAnswer(ctx, session.ID, 7, qs[0].ID.String(), "A")
	_ = h.svc.SaveAnswer(ctx, session.ID, 7, qs[1].ID.String(), "A")
	_ = h.svc.SaveAnswer(ctx, session.ID, 7, qs[2].ID.String(), "B")

	final, err := h.svc.Submit(ctx, session.ID, 7)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if *final.Score != 50 || *final.CorrectCount != 2 || *final.WrongCount != 1 {
		t.Errorf("got score=%d correct=%d wrong=%d, want 50/2/1",
			*final.Score, *final.CorrectCount, *final.WrongCount)
	}
	if final.EndTime == nil {
		t.Error("end time not stamped")
	}

	if _, err := h.svc.Submit(ctx, session.ID, 7); !errors.Is(err, model.ErrAlreadyFinalized) {
		t.Fatalf("second submit err = %v, want ErrAlreadyFinalized", err)
	}
	if n := h.queue.resultCount(); n != 1 {
		t.Errorf("result reports = %d, want exactly 1", n)
	}

	report := h.queue.results[0]
	if report.Score != 50 || report.Correct != 2 || report.Wrong != 1 {
		t.Errorf("report = %+v, want score 50, correct 2, wrong 1", report)
	}
	if report.ParticipantNumber != "P-001" || report.Subject != "Matematika" {
		t.Errorf("report identity = %s/%s", report.ParticipantNumber, report.Subject)
	}

	// The live stash is dropped once the answers are frozen.
	if live, _ := h.stash.GetAll(ctx, session.ID); len(live) != 0 {
		t.Errorf("stash still holds %d answers after finalize", len(live))
	}
}

func TestConcurrentFinalizersProduceOneReport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, _ := h.svc.Start(ctx, 7, 1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		force := i%2 == 0
		go func() {
			defer wg.Done()
			if force {
				_, _ = h.svc.ForceFinish(ctx, session.ID, model.SessionStatusTerminated)
			} else {
				_, _ = h.svc.Submit(ctx, session.ID, 7)
			}
		}()
	}
	wg.Wait()

	final, _ := h.svc.Get(ctx, session.ID, 7)
	if !final.Status.Terminal() {
		t.Fatalf("status = %s, want terminal", final.Status)
	}
	if n := h.queue.resultCount(); n != 1 {
		t.Fatalf("result reports = %d, want exactly 1", n)
	}
}

func TestForceFinishTerminated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	qs := h.subjectQuestions()

	session, _ := h.svc.Start(ctx, 7, 1)
	_ = h.svc.SaveAnswer(ctx, session.ID, 7, qs[0].ID.String(), "A")

	final, err := h.svc.ForceFinish(ctx, session.ID, model.SessionStatusTerminated)
	if err != nil {
		t.Fatalf("force finish: %v", err)
	}
	if final.Status != model.SessionStatusTerminated {
		t.Errorf("status = %s, want terminated", final.Status)
	}
	// Terminated attempts are still graded from whatever was answered.
	if final.Score == nil || *final.Score != 25 {
		t.Errorf("score = %v, want 25", final.Score)
	}
	if h.queue.resultCount() != 1 {
		t.Error("terminated session did not publish its report")
	}
	if h.queue.results[0].Status != model.SessionStatusTerminated {
		t.Errorf("report status = %s, want terminated", h.queue.results[0].Status)
	}
}

func TestForceFinishRejectsOngoingTarget(t *testing.T) {
	h := newHarness(t)
	session, _ := h.svc.Start(context.Background(), 7, 1)

	_, err := h.svc.ForceFinish(context.Background(), session.ID, model.SessionStatusOngoing)
	if !errors.Is(err, model.ErrMalformedSession) {
		t.Fatalf("err = %v, want ErrMalformedSession", err)
	}
}

func TestExpireOverdueFinalizesOnlyTimedOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	fresh, _ := h.svc.Start(ctx, 7, 1)
	stale, _ := h.svc.Start(ctx, 8, 1)
	h.store.sessions[stale.ID].StartTime = time.Now().Add(-91 * time.Minute)

	expired, err := h.svc.ExpireOverdue(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	got, _ := h.svc.Get(ctx, stale.ID, 8)
	if got.Status != model.SessionStatusCompleted {
		t.Errorf("stale status = %s, want completed", got.Status)
	}
	got, _ = h.svc.Get(ctx, fresh.ID, 7)
	if got.Status != model.SessionStatusOngoing {
		t.Errorf("fresh status = %s, want ongoing", got.Status)
	}

	// A second sweep finds nothing new.
	if expired, _ := h.svc.ExpireOverdue(ctx); expired != 0 {
		t.Errorf("second sweep expired = %d, want 0", expired)
	}
	if n := h.queue.resultCount(); n != 1 {
		t.Errorf("result reports = %d, want 1", n)
	}
}

func TestStateRemainingClampedToZero(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, _ := h.svc.Start(ctx, 7, 1)
	h.store.sessions[session.ID].StartTime = time.Now().Add(-95 * time.Minute)

	state, err := h.svc.State(ctx, session.ID, 7)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.RemainingSeconds != 0 {
		t.Errorf("remaining = %d, want 0", state.RemainingSeconds)
	}
}

func TestMalformedSessionRefused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, _ := h.svc.Start(ctx, 7, 1)
	h.store.sessions[session.ID].Violations = -1

	if _, err := h.svc.Get(ctx, session.ID, 7); !errors.Is(err, model.ErrMalformedSession) {
		t.Fatalf("err = %v, want ErrMalformedSession", err)
	}
	if _, err := h.svc.Submit(ctx, session.ID, 7); !errors.Is(err, model.ErrMalformedSession) {
		t.Fatalf("submit err = %v, want ErrMalformedSession", err)
	}
}
