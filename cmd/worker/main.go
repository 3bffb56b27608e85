package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"classroom/internal/config"
	"classroom/internal/queue"
	"classroom/internal/school"
	"classroom/internal/store"
)

// Worker consumes audit messages published by the API and persists them.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	repo := school.NewRepository(db.Pool)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classroom:audit")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "audit" {
			continue
		}

		var evt school.AuditEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Printf("bad audit message: %v", err)
			continue
		}

		if err := repo.InsertAudit(ctx, evt); err != nil {
			log.Printf("audit insert failed for %s %s: %v", evt.Action, evt.SubjectID, err)
			continue
		}
		log.Printf("audit recorded: %s by %s", evt.Action, evt.ActorID)
	}

	log.Println("worker stopped")
}
