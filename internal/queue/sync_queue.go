package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"progresstracker/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SyncJobsQueue    = "sync:jobs"
	SyncResultsQueue = "sync:results"
)

// SyncQueue carries background sync requests from write endpoints to the
// worker, so a student create/update returns immediately while the slow
// external fetch happens off the request path.
type SyncQueue struct {
	client *redis.Client
}

func NewSyncQueue(client *redis.Client) *SyncQueue {
	return &SyncQueue{client: client}
}

func (q *SyncQueue) Enqueue(ctx context.Context, studentID uuid.UUID, reason string) error {
	job := &models.SyncJob{
		JobID:      uuid.New(),
		StudentID:  studentID,
		Reason:     reason,
		EnqueuedAt: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal sync job: %w", err)
	}

	if err := q.client.LPush(ctx, SyncJobsQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to queue sync job: %w", err)
	}

	log.Printf("Queued sync job %s for student %s (%s)", job.JobID, studentID, reason)
	return nil
}

// Dequeue blocks up to timeout for the next job. A nil job without error
// means the wait timed out.
func (q *SyncQueue) Dequeue(ctx context.Context, timeout time.Duration) (*models.SyncJob, error) {
	result, err := q.client.BRPop(ctx, timeout, SyncJobsQueue).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue sync job: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var job models.SyncJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync job: %w", err)
	}
	return &job, nil
}

func (q *SyncQueue) PublishResult(ctx context.Context, result *models.SyncResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal sync result: %w", err)
	}

	if err := q.client.Publish(ctx, SyncResultsQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to publish sync result: %w", err)
	}
	return nil
}

func (q *SyncQueue) SubscribeToResults(ctx context.Context) (<-chan *models.SyncResult, error) {
	pubsub := q.client.Subscribe(ctx, SyncResultsQueue)

	resultChan := make(chan *models.SyncResult, 10)

	go func() {
		defer close(resultChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var result models.SyncResult
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					log.Printf("Failed to unmarshal sync result: %v", err)
					continue
				}

				select {
				case resultChan <- &result:
				case <-ctx.Done():
					return
				default:
					log.Printf("Result channel full, dropping result for job %s", result.JobID)
				}
			}
		}
	}()

	return resultChan, nil
}

func (q *SyncQueue) GetQueueLength(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, SyncJobsQueue).Result()
}
