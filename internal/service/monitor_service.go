package service

import (
	"context"
	"time"

	"github.com/smkbandara/cbt-backend/internal/repository"
)

// OverviewStore supplies the joined monitoring rows.
type OverviewStore interface {
	ListOngoingOverview(ctx context.Context) ([]repository.SessionOverview, error)
}

// MonitorRow is one live session as shown to a proctor, with answer progress
// overlaid from the live stash.
type MonitorRow struct {
	repository.SessionOverview
	// ProgressPercent is answered/total, 0 when the subject has no questions.
	ProgressPercent int `json:"progress_percent"`
	ElapsedSeconds  int `json:"elapsed_seconds"`
}

// MonitorService builds the proctor's polling view of ongoing sessions.
type MonitorService struct {
	store OverviewStore
	stash AnswerStash
	now   func() time.Time
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(store OverviewStore, stash AnswerStash) *MonitorService {
	return &MonitorService{store: store, stash: stash, now: time.Now}
}

// Overview returns every ongoing session with live progress. The answered
// count prefers the live stash over the trailing jsonb column.
func (s *MonitorService) Overview(ctx context.Context) ([]MonitorRow, error) {
	overviews, err := s.store.ListOngoingOverview(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]MonitorRow, 0, len(overviews))
	now := s.now()
	for _, o := range overviews {
		// Best-effort: the persisted count is good enough when Redis is down.
		if live, err := s.stash.GetAll(ctx, o.SessionID); err == nil && len(live) > o.AnsweredCount {
			o.AnsweredCount = len(live)
		}

		row := MonitorRow{
			SessionOverview: o,
			ElapsedSeconds:  int(now.Sub(o.StartTime).Seconds()),
		}
		if o.QuestionCount > 0 {
			row.ProgressPercent = o.AnsweredCount * 100 / o.QuestionCount
		}
		rows = append(rows, row)
	}
	return rows, nil
}
