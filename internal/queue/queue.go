// Package queue carries attendance mark events to the audit worker.
package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// MarkEvent describes one successful attendance mark.
type MarkEvent struct {
	Lecture  string    `json:"lecture"`
	Student  string    `json:"student"`
	Day      string    `json:"day"`
	MarkedBy string    `json:"markedBy"`
	MarkedAt time.Time `json:"markedAt"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, evt MarkEvent) error
	Consume(ctx context.Context) (<-chan MarkEvent, error)
}

// InMemory is a minimal channel-backed queue for dev and testing.
type InMemory struct {
	ch chan MarkEvent
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan MarkEvent, size)}
}

// Publish enqueues an event. A full buffer drops the event instead of
// blocking the caller: the mark itself is already durable in the store
// and the audit stream is best-effort, with no backpressure.
func (q *InMemory) Publish(_ context.Context, evt MarkEvent) error {
	select {
	case q.ch <- evt:
	default:
		log.Printf("mark event buffer full, dropping audit event for %s/%s", evt.Lecture, evt.Student)
	}
	return nil
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan MarkEvent, error) {
	out := make(chan MarkEvent)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-q.ch:
				out <- evt
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue stores events as JSON in a redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "attendance:marks"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues an event.
func (q *RedisQueue) Publish(ctx context.Context, evt MarkEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Consume streams events using BRPOP. Malformed entries are skipped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan MarkEvent, error) {
	out := make(chan MarkEvent)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				var evt MarkEvent
				if err := json.Unmarshal([]byte(res[1]), &evt); err == nil {
					out <- evt
				}
			}
		}
	}()
	return out, nil
}
