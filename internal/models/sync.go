package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncJob is the unit of work pushed onto the background sync queue.
type SyncJob struct {
	JobID      uuid.UUID `json:"job_id"`
	StudentID  uuid.UUID `json:"student_id"`
	Reason     string    `json:"reason,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// SyncResult is published after a queued job has been processed.
type SyncResult struct {
	JobID       uuid.UUID `json:"job_id"`
	StudentID   uuid.UUID `json:"student_id"`
	WorkerID    string    `json:"worker_id"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}
