package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"geoattend/internal/attendance"
	"geoattend/internal/config"
	"geoattend/internal/queue"
	"geoattend/internal/store"
)

// Worker consumes scan audit events from the queue and persists them for
// diagnostics.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}
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

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "geoattend:audit")
	}

	repo := attendance.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("audit worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "scan" {
			continue
		}

		var entry attendance.AuditEntry
		if err := json.Unmarshal(msg.Body, &entry); err != nil {
			log.Printf("bad audit message: %v", err)
			continue
		}

		if err := repo.InsertScanAudit(ctx, entry); err != nil {
			log.Printf("audit insert failed for student %s: %v", entry.StudentID, err)
			continue
		}
		log.Printf("audit: student %s outcome %s", entry.StudentID, entry.Outcome)
	}

	log.Println("worker stopped")
}
