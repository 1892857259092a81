package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"progresstracker/internal/codeforces"
	"progresstracker/internal/common"

	"github.com/google/uuid"
)

// PlatformClient is the slice of the Codeforces client the orchestrator uses.
type PlatformClient interface {
	UserInfo(ctx context.Context, handle string) (*codeforces.UserInfo, error)
	RatingHistory(ctx context.Context, handle string) ([]codeforces.RatingChange, error)
	RecentSubmissions(ctx context.Context, handle string, count int) ([]codeforces.Submission, error)
}

// Pacer spaces consecutive students during a batch sweep. Tests inject a
// zero-interval pacer.
type Pacer interface {
	Wait(ctx context.Context) error
}

type delayPacer struct {
	interval time.Duration
}

func NewDelayPacer(interval time.Duration) Pacer {
	return &delayPacer{interval: interval}
}

func (p *delayPacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Summary reports the outcome of one batch sweep.
type Summary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Orchestrator runs the fetch-then-reconcile cycle, one student at a time.
// Sequential iteration with explicit pacing is the concurrency control: it
// keeps the external API within its fair-use limits.
type Orchestrator struct {
	students        StudentStore
	client          PlatformClient
	reconciler      *Reconciler
	pacer           Pacer
	submissionCount int
}

func NewOrchestrator(students StudentStore, client PlatformClient, reconciler *Reconciler, pacer Pacer, submissionCount int) *Orchestrator {
	if submissionCount <= 0 {
		submissionCount = 1000
	}
	return &Orchestrator{
		students:        students,
		client:          client,
		reconciler:      reconciler,
		pacer:           pacer,
		submissionCount: submissionCount,
	}
}

// SyncOne performs the full cycle for a single student and propagates any
// step's failure to the caller.
func (o *Orchestrator) SyncOne(ctx context.Context, studentID uuid.UUID) error {
	student, err := o.students.GetStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("failed to load student %s: %w", studentID, err)
	}
	if student == nil {
		return fmt.Errorf("student %s: %w", studentID, common.ErrNotFound)
	}

	log.Printf("Syncing data for %s...", student.Handle)

	info, err := o.client.UserInfo(ctx, student.Handle)
	if err != nil {
		return fmt.Errorf("user info fetch for %s: %w", student.Handle, err)
	}

	contests, err := o.client.RatingHistory(ctx, student.Handle)
	if err != nil {
		return fmt.Errorf("rating history fetch for %s: %w", student.Handle, err)
	}

	submissions, err := o.client.RecentSubmissions(ctx, student.Handle, o.submissionCount)
	if err != nil {
		return fmt.Errorf("submissions fetch for %s: %w", student.Handle, err)
	}

	snapshot := Snapshot{Info: info, Contests: contests, Submissions: submissions}
	if err := o.reconciler.Reconcile(ctx, student, snapshot); err != nil {
		return fmt.Errorf("reconcile for %s: %w", student.Handle, err)
	}

	log.Printf("Data sync completed for %s", student.Handle)
	return nil
}

// SyncAll sweeps every active student in stable storage order. A student's
// failure is logged and counted but never aborts the rest of the batch;
// external lookups for arbitrary handles fail routinely.
func (o *Orchestrator) SyncAll(ctx context.Context) (Summary, error) {
	students, err := o.students.ListActiveStudents(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list active students: %w", err)
	}

	log.Printf("Starting sync for %d students...", len(students))

	summary := Summary{Attempted: len(students)}
	for i, student := range students {
		if err := o.SyncOne(ctx, student.ID); err != nil {
			summary.Failed++
			log.Printf("Failed to sync data for %s: %v", student.Handle, err)
		} else {
			summary.Succeeded++
		}

		if i < len(students)-1 {
			if err := o.pacer.Wait(ctx); err != nil {
				return summary, fmt.Errorf("sync sweep interrupted: %w", err)
			}
		}
	}

	log.Printf("All students data sync completed (%d succeeded, %d failed)", summary.Succeeded, summary.Failed)
	return summary, nil
}
