package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"progresstracker/internal/models"
	"progresstracker/internal/queue"

	"github.com/google/uuid"
)

// StudentSyncer runs one full fetch-and-reconcile pass for a single student.
type StudentSyncer interface {
	SyncOne(ctx context.Context, studentID uuid.UUID) error
}

type WorkerService struct {
	workerID      string
	queue         *queue.SyncQueue
	syncer        StudentSyncer
	jobsProcessed int64
}

func NewWorkerService(queue *queue.SyncQueue, syncer StudentSyncer) *WorkerService {
	workerID := fmt.Sprintf("worker-%s", uuid.New().String()[:8])

	if hostname, err := os.Hostname(); err == nil {
		workerID = fmt.Sprintf("worker-%s-%s", hostname, uuid.New().String()[:8])
	}

	return &WorkerService{
		workerID: workerID,
		queue:    queue,
		syncer:   syncer,
	}
}

func (ws *WorkerService) Start(ctx context.Context) error {
	log.Printf("Starting worker %s", ws.workerID)
	return ws.processJobs(ctx)
}

func (ws *WorkerService) processJobs(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %s shutting down", ws.workerID)
			return nil

		default:
			job, err := ws.queue.Dequeue(ctx, 30*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("Error dequeuing job: %v", err)
				time.Sleep(5 * time.Second)
				continue
			}

			if job == nil {
				continue
			}

			result := ws.processJob(ctx, job)

			if err := ws.queue.PublishResult(ctx, result); err != nil {
				log.Printf("Failed to publish result for job %s: %v", job.JobID, err)
			}

			ws.jobsProcessed++
		}
	}
}

func (ws *WorkerService) processJob(ctx context.Context, job *models.SyncJob) *models.SyncResult {
	log.Printf("Worker %s processing job %s for student %s (%s)", ws.workerID, job.JobID, job.StudentID, job.Reason)

	startTime := time.Now()

	result := &models.SyncResult{
		JobID:       job.JobID,
		StudentID:   job.StudentID,
		WorkerID:    ws.workerID,
		Success:     true,
		ProcessedAt: time.Now(),
	}

	if err := ws.syncer.SyncOne(ctx, job.StudentID); err != nil {
		log.Printf("Sync failed for job %s: %v", job.JobID, err)
		result.Success = false
		result.Error = err.Error()
		result.ProcessedAt = time.Now()
		return result
	}

	result.ProcessedAt = time.Now()
	log.Printf("Worker %s completed job %s in %v", ws.workerID, job.JobID, time.Since(startTime))

	return result
}
