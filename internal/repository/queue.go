package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/smkbandara/cbt-backend/internal/config"
	"github.com/smkbandara/cbt-backend/internal/model"
)

// AnswerPersistPayload is one autosave handed to the answer worker.
type AnswerPersistPayload struct {
	SessionID  string `json:"session_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// WorkQueue is the producer side of the Redis worker queues. Handlers and
// services push; the workers BLPop.
type WorkQueue struct {
	rdb *redis.Client
}

// NewWorkQueue creates a new WorkQueue.
func NewWorkQueue(rdb *redis.Client) *WorkQueue {
	return &WorkQueue{rdb: rdb}
}

// EnqueueAnswer schedules an autosaved answer for batch persistence.
func (q *WorkQueue) EnqueueAnswer(ctx context.Context, p *AnswerPersistPayload) error {
	return q.push(ctx, config.WorkerKey.PersistAnswersQueue, p)
}

// EnqueueViolation schedules a violation audit record for batch persistence.
func (q *WorkQueue) EnqueueViolation(ctx context.Context, e *model.ViolationEvent) error {
	return q.push(ctx, config.WorkerKey.PersistViolationsQueue, e)
}

// EnqueueResult schedules a terminal result for webhook delivery.
func (q *WorkQueue) EnqueueResult(ctx context.Context, p *model.ResultPayload) error {
	return q.push(ctx, config.WorkerKey.ReportResultsQueue, p)
}

func (q *WorkQueue) push(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, key, data).Err()
}
