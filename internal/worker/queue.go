// Package worker implements the background delivery of password-reset
// emails through a redis-backed job queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// resetQueueKey is the redis list holding pending reset jobs.
const resetQueueKey = "dundie:queue:pwd-reset"

// resetJob is the payload pushed onto the queue. The username becomes
// the subject of the pwd_reset token.
type resetJob struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Queue enqueues password-reset jobs for the mailer. It satisfies
// service.PasswordResetQueue.
type Queue struct {
	rdb *redis.Client
}

// NewQueue creates a queue over an existing redis client.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// EnqueuePasswordReset pushes a reset job for the given account.
func (q *Queue) EnqueuePasswordReset(ctx context.Context, username, email string) error {
	payload, err := json.Marshal(resetJob{Username: username, Email: email})
	if err != nil {
		return fmt.Errorf("error encoding reset job: %w", err)
	}

	if err := q.rdb.LPush(ctx, resetQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("error enqueueing reset job: %w", err)
	}

	return nil
}
