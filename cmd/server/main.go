package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"progresstracker/internal/api"
	"progresstracker/internal/api/handler"
	"progresstracker/internal/codeforces"
	"progresstracker/internal/config"
	"progresstracker/internal/database"
	"progresstracker/internal/notify"
	"progresstracker/internal/queue"
	"progresstracker/internal/scheduler"
	datasync "progresstracker/internal/sync"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

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

	if err := db.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := redisClient.Ping(pingCtx).Result(); err != nil {
		pingCancel()
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	pingCancel()

	studentRepo := database.NewStudentRepository(db)
	contestRepo := database.NewContestRepository(db)
	submissionRepo := database.NewSubmissionRepository(db)
	settingsRepo := database.NewSettingsRepository(db)

	cfClient := codeforces.NewClient(cfg.Codeforces.BaseURL, cfg.Codeforces.RequestInterval)
	reconciler := datasync.NewReconciler(studentRepo, contestRepo, submissionRepo)
	orchestrator := datasync.NewOrchestrator(
		studentRepo,
		cfClient,
		reconciler,
		datasync.NewDelayPacer(cfg.Sync.StudentInterval),
		cfg.Codeforces.SubmissionCount,
	)

	mailer := notify.NewMailer(cfg.SMTP)
	notifier := notify.NewNotifier(studentRepo, settingsRepo, mailer)

	sched := scheduler.New(settingsRepo, orchestrator, notifier)
	if err := sched.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	syncQueue := queue.NewSyncQueue(redisClient)

	resultsCtx, resultsCancel := context.WithCancel(context.Background())
	defer resultsCancel()

	results, err := syncQueue.SubscribeToResults(resultsCtx)
	if err != nil {
		log.Fatalf("Failed to subscribe to sync results: %v", err)
	}
	go func() {
		for result := range results {
			if result.Success {
				log.Printf("Sync job %s for student %s completed by %s", result.JobID, result.StudentID, result.WorkerID)
			} else {
				log.Printf("Sync job %s for student %s failed on %s: %s", result.JobID, result.StudentID, result.WorkerID, result.Error)
			}
		}
	}()

	studentHandler := handler.NewStudentHandler(studentRepo, contestRepo, submissionRepo, syncQueue)
	settingsHandler := handler.NewSettingsHandler(settingsRepo, sched)
	syncHandler := handler.NewSyncHandler(orchestrator, notifier)

	router := api.NewRouter(studentHandler, settingsHandler, syncHandler)

	server := &http.Server{
		Addr:    ":" + cfg.Server.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Progress tracker server starting on port %s", cfg.Server.HTTPPort)
		log.Printf("Database: %s:%s/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
		log.Printf("Redis: %s", cfg.Redis.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("Received shutdown signal, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}

	log.Println("Server stopped")
}
