package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/smkbandara/cbt-backend/internal/config"
)

// AnswerCache keeps each ongoing session's live answers in a Redis hash so
// that autosaves stay off the write path of PostgreSQL. The hash is the
// freshest view of a session's answers; the jsonb column trails it by at most
// one worker flush.
type AnswerCache struct {
	rdb *redis.Client
}

// NewAnswerCache creates a new AnswerCache.
func NewAnswerCache(rdb *redis.Client) *AnswerCache {
	return &AnswerCache{rdb: rdb}
}

// Save records a single answer for the session.
func (c *AnswerCache) Save(ctx context.Context, sessionID uuid.UUID, questionID, answer string) error {
	return c.rdb.HSet(ctx, config.CacheKey.SessionAnswersKey(sessionID.String()), questionID, answer).Err()
}

// GetAll returns every live answer for the session. A missing hash yields an
// empty map, not an error.
func (c *AnswerCache) GetAll(ctx context.Context, sessionID uuid.UUID) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(sessionID.String())).Result()
}

// Clear drops the session's hash. Called after the terminal transition froze
// the answers in PostgreSQL.
func (c *AnswerCache) Clear(ctx context.Context, sessionID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.SessionAnswersKey(sessionID.String())).Err()
}
