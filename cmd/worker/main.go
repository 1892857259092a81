package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"progresstracker/internal/codeforces"
	"progresstracker/internal/config"
	"progresstracker/internal/database"
	"progresstracker/internal/queue"
	datasync "progresstracker/internal/sync"
	"progresstracker/internal/worker"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting sync worker...")

	cfg := config.LoadConfig()

	db, err := database.NewGormConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if _, err := redisClient.Ping(pingCtx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis successfully")

	studentRepo := database.NewStudentRepository(db)
	contestRepo := database.NewContestRepository(db)
	submissionRepo := database.NewSubmissionRepository(db)

	cfClient := codeforces.NewClient(cfg.Codeforces.BaseURL, cfg.Codeforces.RequestInterval)
	reconciler := datasync.NewReconciler(studentRepo, contestRepo, submissionRepo)
	orchestrator := datasync.NewOrchestrator(
		studentRepo,
		cfClient,
		reconciler,
		datasync.NewDelayPacer(cfg.Sync.StudentInterval),
		cfg.Codeforces.SubmissionCount,
	)

	syncQueue := queue.NewSyncQueue(redisClient)
	workerService := worker.NewWorkerService(syncQueue, orchestrator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- workerService.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("Received shutdown signal, stopping worker...")

	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
	}

	log.Println("Worker stopped")
}
