// Package sync merges freshly fetched Codeforces data into local storage and
// drives the batch synchronization sweep across tracked students.
package sync

import (
	"context"
	"fmt"
	"time"

	"progresstracker/internal/codeforces"
	"progresstracker/internal/models"

	"github.com/google/uuid"
)

// StudentStore is the slice of student persistence the sync path needs.
// *database.StudentRepository satisfies it; tests substitute in-memory fakes.
type StudentStore interface {
	GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error)
	ListActiveStudents(ctx context.Context) ([]models.Student, error)
	SaveStudent(ctx context.Context, student *models.Student) error
}

type ContestStore interface {
	UpsertResult(ctx context.Context, result *models.ContestResult) error
}

type SubmissionStore interface {
	UpsertRecord(ctx context.Context, record *models.SubmissionRecord) error
}

// Snapshot is one student's freshly fetched remote state.
type Snapshot struct {
	Info        *codeforces.UserInfo
	Contests    []codeforces.RatingChange
	Submissions []codeforces.Submission
}

// Reconciler applies snapshots to local storage. Upserts are keyed so that
// replaying the same snapshot any number of times leaves storage unchanged.
type Reconciler struct {
	students    StudentStore
	contests    ContestStore
	submissions SubmissionStore
	now         func() time.Time
}

func NewReconciler(students StudentStore, contests ContestStore, submissions SubmissionStore) *Reconciler {
	return &Reconciler{
		students:    students,
		contests:    contests,
		submissions: submissions,
		now:         time.Now,
	}
}

// Reconcile updates the student's rating fields, upserts every fetched contest
// result and submission, advances the last-submission watermark and stamps the
// sync time. MaxRating never decreases, even when the feed reports a lower
// value.
func (r *Reconciler) Reconcile(ctx context.Context, student *models.Student, snapshot Snapshot) error {
	if snapshot.Info != nil {
		student.CurrentRating = snapshot.Info.Rating
		if snapshot.Info.MaxRating > student.MaxRating {
			student.MaxRating = snapshot.Info.MaxRating
		}
	}

	for _, change := range snapshot.Contests {
		result := &models.ContestResult{
			StudentID:    student.ID,
			ContestID:    change.ContestID,
			ContestName:  change.ContestName,
			Rank:         change.Rank,
			OldRating:    change.OldRating,
			NewRating:    change.NewRating,
			RatingChange: change.NewRating - change.OldRating,
			ContestAt:    time.Unix(change.RatingUpdateTimeSeconds, 0).UTC(),
		}
		if err := r.contests.UpsertResult(ctx, result); err != nil {
			return fmt.Errorf("failed to upsert contest %d for %s: %w", change.ContestID, student.Handle, err)
		}
	}

	var lastSubmission time.Time
	for _, submission := range snapshot.Submissions {
		submittedAt := time.Unix(submission.CreationTimeSeconds, 0).UTC()
		if submittedAt.After(lastSubmission) {
			lastSubmission = submittedAt
		}

		record := &models.SubmissionRecord{
			ID:            submission.ID,
			StudentID:     student.ID,
			ContestID:     submission.ContestID,
			ProblemIndex:  submission.Problem.Index,
			ProblemName:   submission.Problem.Name,
			ProblemRating: submission.Problem.Rating,
			Verdict:       models.Verdict(submission.Verdict),
			Language:      submission.ProgrammingLanguage,
			SubmittedAt:   submittedAt,
		}
		if err := r.submissions.UpsertRecord(ctx, record); err != nil {
			return fmt.Errorf("failed to upsert submission %d for %s: %w", submission.ID, student.Handle, err)
		}
	}

	if !lastSubmission.IsZero() {
		student.LastSubmissionAt = &lastSubmission
	}

	syncedAt := r.now()
	student.LastSyncedAt = &syncedAt

	if err := r.students.SaveStudent(ctx, student); err != nil {
		return fmt.Errorf("failed to save student %s: %w", student.Handle, err)
	}
	return nil
}
