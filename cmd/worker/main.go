package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/just-aakash/cyberknights/internal/config"
	"github.com/just-aakash/cyberknights/internal/queue"
	"github.com/just-aakash/cyberknights/internal/store"
)

// Worker tails the mark-event queue and writes an audit line per event,
// giving operations a durable record of who was marked where and by
// whom. It only makes sense with the redis queue backend; the in-memory
// queue is process-local to the API.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable, will keep polling", cfg.RedisAddr)
	}
	q := queue.NewRedisQueue(redisClient.Client, store.MarkQueueKey)

	events, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("audit worker started, waiting for mark events...")
	for evt := range events {
		log.Printf("audit: %s marked present in %s on %s by %s at %s",
			evt.Student, evt.Lecture, evt.Day, evt.MarkedBy, evt.MarkedAt.Format("15:04:05"))
	}
	log.Println("audit worker stopped")
}
