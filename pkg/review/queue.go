// Package review is the operator workflow around ambiguous identity matches:
// pending cases are pushed onto a Redis list so a reviewer session can pop,
// inspect, and resolve them without polling the database.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	funnelerrors "github.com/otherjamesbrown/funnel-cli/pkg/errors"
	"github.com/otherjamesbrown/funnel-cli/pkg/identity"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

const defaultQueueKey = "funnel:review:pending"

// envelope wraps a case on the wire with enqueue metadata.
type envelope struct {
	Case       identity.PendingReviewCase `json:"case"`
	EnqueuedAt time.Time                  `json:"enqueued_at"`
}

// Queue is a Redis-backed pending review queue.
type Queue struct {
	client *redis.Client
	key    string
	logger logging.Logger
	now    func() time.Time
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithQueueKey overrides the Redis list key.
func WithQueueKey(key string) QueueOption {
	return func(q *Queue) { q.key = key }
}

// NewQueue creates a review queue on an existing Redis client.
func NewQueue(client *redis.Client, logger logging.Logger, opts ...QueueOption) *Queue {
	q := &Queue{
		client: client,
		key:    defaultQueueKey,
		logger: logger.With(logging.F("component", "review_queue")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Publish pushes a pending case onto the queue.
func (q *Queue) Publish(ctx context.Context, c identity.PendingReviewCase) error {
	payload, err := json.Marshal(envelope{Case: c, EnqueuedAt: q.now()})
	if err != nil {
		return fmt.Errorf("marshaling review case: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("publishing review case: %w", err)
	}
	q.logger.Debug("Review case queued",
		logging.F("case_id", c.CaseID),
		logging.F("confidence", c.Confidence))
	return nil
}

// PublishMutations pushes the case-creating mutations of an engine batch.
// Other mutation kinds are not queue concerns and pass through untouched.
func (q *Queue) PublishMutations(ctx context.Context, muts []identity.Mutation) error {
	for _, mut := range muts {
		if mut.Kind != identity.MutationCreateCase || mut.Case == nil {
			continue
		}
		if err := q.Publish(ctx, *mut.Case); err != nil {
			return err
		}
	}
	return nil
}

// Pop blocks up to the timeout for the next case. Returns ErrNotFound when
// the queue stays empty.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*identity.PendingReviewCase, error) {
	vals, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, funnelerrors.ErrNotFound
		}
		return nil, fmt.Errorf("popping review case: %w", err)
	}
	// BRPOP returns [key, value].
	if len(vals) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(vals))
	}

	var env envelope
	if err := json.Unmarshal([]byte(vals[1]), &env); err != nil {
		return nil, fmt.Errorf("unmarshaling review case: %w", err)
	}
	return &env.Case, nil
}

// Requeue pushes a case back to the tail so it comes up again last.
func (q *Queue) Requeue(ctx context.Context, c identity.PendingReviewCase) error {
	payload, err := json.Marshal(envelope{Case: c, EnqueuedAt: q.now()})
	if err != nil {
		return fmt.Errorf("marshaling review case: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("requeueing review case: %w", err)
	}
	return nil
}

// Length returns the number of queued cases.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("reading queue length: %w", err)
	}
	return n, nil
}

// ClientFromEnv builds a Redis client from REDIS_ADDR and REDIS_PASSWORD.
func ClientFromEnv(addr, password string) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}
