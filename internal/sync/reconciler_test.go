package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"progresstracker/internal/codeforces"
	"progresstracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStudentStore struct {
	students map[uuid.UUID]*models.Student
	listErr  error
	saveErr  map[uuid.UUID]error
	saved    int
}

func newFakeStudentStore(students ...*models.Student) *fakeStudentStore {
	s := &fakeStudentStore{
		students: make(map[uuid.UUID]*models.Student),
		saveErr:  make(map[uuid.UUID]error),
	}
	for _, student := range students {
		s.students[student.ID] = student
	}
	return s
}

func (s *fakeStudentStore) GetStudent(_ context.Context, id uuid.UUID) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, nil
	}
	copied := *student
	return &copied, nil
}

func (s *fakeStudentStore) ListActiveStudents(_ context.Context) ([]models.Student, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Student
	for _, student := range s.students {
		if student.Active {
			out = append(out, *student)
		}
	}
	return out, nil
}

func (s *fakeStudentStore) SaveStudent(_ context.Context, student *models.Student) error {
	if err := s.saveErr[student.ID]; err != nil {
		return err
	}
	copied := *student
	s.students[student.ID] = &copied
	s.saved++
	return nil
}

type fakeContestStore struct {
	results map[string]models.ContestResult
	upserts int
	err     error
}

func newFakeContestStore() *fakeContestStore {
	return &fakeContestStore{results: make(map[string]models.ContestResult)}
}

func (s *fakeContestStore) UpsertResult(_ context.Context, result *models.ContestResult) error {
	if s.err != nil {
		return s.err
	}
	s.upserts++
	key := fmt.Sprintf("%s/%d", result.StudentID, result.ContestID)
	s.results[key] = *result
	return nil
}

type fakeSubmissionStore struct {
	records map[int64]models.SubmissionRecord
	upserts int
	err     error
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{records: make(map[int64]models.SubmissionRecord)}
}

func (s *fakeSubmissionStore) UpsertRecord(_ context.Context, record *models.SubmissionRecord) error {
	if s.err != nil {
		return s.err
	}
	s.upserts++
	s.records[record.ID] = *record
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestReconcileAppliesSnapshot(t *testing.T) {
	student := &models.Student{
		ID:            uuid.New(),
		Name:          "Alice",
		Handle:        "alice",
		CurrentRating: 1400,
		MaxRating:     1400,
		Active:        true,
	}
	students := newFakeStudentStore(student)
	contests := newFakeContestStore()
	submissions := newFakeSubmissionStore()

	r := NewReconciler(students, contests, submissions)
	r.now = fixedNow

	snapshot := Snapshot{
		Info: &codeforces.UserInfo{Handle: "alice", Rating: 1450, MaxRating: 1450},
		Contests: []codeforces.RatingChange{
			{
				ContestID:               100,
				ContestName:             "Round #100",
				Rank:                    42,
				OldRating:               1400,
				NewRating:               1450,
				RatingUpdateTimeSeconds: 1700000000,
			},
		},
		Submissions: []codeforces.Submission{
			{
				ID:                  555,
				ContestID:           100,
				Problem:             codeforces.Problem{ContestID: 100, Index: "A", Name: "Watermelon", Rating: 800},
				Verdict:             "OK",
				CreationTimeSeconds: 1700000500,
				ProgrammingLanguage: "GNU C++20",
			},
		},
	}

	work := *student
	require.NoError(t, r.Reconcile(context.Background(), &work, snapshot))

	assert.Equal(t, 1450, work.CurrentRating)
	assert.Equal(t, 1450, work.MaxRating)
	require.NotNil(t, work.LastSyncedAt)
	assert.Equal(t, fixedNow(), *work.LastSyncedAt)
	require.NotNil(t, work.LastSubmissionAt)
	assert.Equal(t, time.Unix(1700000500, 0).UTC(), *work.LastSubmissionAt)

	key := fmt.Sprintf("%s/%d", student.ID, 100)
	result, ok := contests.results[key]
	require.True(t, ok)
	assert.Equal(t, "Round #100", result.ContestName)
	assert.Equal(t, 50, result.RatingChange)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), result.ContestAt)

	record, ok := submissions.records[555]
	require.True(t, ok)
	assert.Equal(t, models.VerdictAccepted, record.Verdict)
	assert.Equal(t, "Watermelon", record.ProblemName)
	assert.Equal(t, 1, students.saved)
}

func TestReconcileReplayIsIdempotent(t *testing.T) {
	student := &models.Student{ID: uuid.New(), Handle: "alice", Active: true}
	students := newFakeStudentStore(student)
	contests := newFakeContestStore()
	submissions := newFakeSubmissionStore()

	r := NewReconciler(students, contests, submissions)
	r.now = fixedNow

	snapshot := Snapshot{
		Info: &codeforces.UserInfo{Handle: "alice", Rating: 1500, MaxRating: 1600},
		Contests: []codeforces.RatingChange{
			{ContestID: 1, OldRating: 1400, NewRating: 1500, RatingUpdateTimeSeconds: 1700000000},
			{ContestID: 2, OldRating: 1500, NewRating: 1480, RatingUpdateTimeSeconds: 1700100000},
		},
		Submissions: []codeforces.Submission{
			{ID: 10, CreationTimeSeconds: 1700000100},
			{ID: 11, CreationTimeSeconds: 1700100200},
		},
	}

	work := *student
	require.NoError(t, r.Reconcile(context.Background(), &work, snapshot))
	first := make(map[string]models.ContestResult, len(contests.results))
	for k, v := range contests.results {
		first[k] = v
	}
	firstRecords := make(map[int64]models.SubmissionRecord, len(submissions.records))
	for k, v := range submissions.records {
		firstRecords[k] = v
	}

	replay := work
	require.NoError(t, r.Reconcile(context.Background(), &replay, snapshot))

	assert.Equal(t, work.CurrentRating, replay.CurrentRating)
	assert.Equal(t, work.MaxRating, replay.MaxRating)
	assert.Equal(t, work.LastSubmissionAt, replay.LastSubmissionAt)
	assert.Len(t, contests.results, 2)
	assert.Len(t, submissions.records, 2)
	assert.Equal(t, first, contests.results)
	assert.Equal(t, firstRecords, submissions.records)
}

func TestReconcileMaxRatingNeverDecreases(t *testing.T) {
	student := &models.Student{ID: uuid.New(), Handle: "bob", MaxRating: 1900, Active: true}
	students := newFakeStudentStore(student)

	r := NewReconciler(students, newFakeContestStore(), newFakeSubmissionStore())
	r.now = fixedNow

	work := *student
	snapshot := Snapshot{Info: &codeforces.UserInfo{Handle: "bob", Rating: 1700, MaxRating: 1800}}
	require.NoError(t, r.Reconcile(context.Background(), &work, snapshot))

	assert.Equal(t, 1700, work.CurrentRating)
	assert.Equal(t, 1900, work.MaxRating)
}

func TestReconcileEmptySubmissionsKeepsWatermark(t *testing.T) {
	previous := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	student := &models.Student{ID: uuid.New(), Handle: "carol", LastSubmissionAt: &previous, Active: true}
	students := newFakeStudentStore(student)

	r := NewReconciler(students, newFakeContestStore(), newFakeSubmissionStore())
	r.now = fixedNow

	work := *student
	snapshot := Snapshot{Info: &codeforces.UserInfo{Handle: "carol", Rating: 1200, MaxRating: 1200}}
	require.NoError(t, r.Reconcile(context.Background(), &work, snapshot))

	require.NotNil(t, work.LastSubmissionAt)
	assert.Equal(t, previous, *work.LastSubmissionAt)
	require.NotNil(t, work.LastSyncedAt)
	assert.Equal(t, fixedNow(), *work.LastSyncedAt)
}

func TestReconcileContestUpsertFailureStopsEarly(t *testing.T) {
	student := &models.Student{ID: uuid.New(), Handle: "dave", Active: true}
	students := newFakeStudentStore(student)
	contests := newFakeContestStore()
	contests.err = fmt.Errorf("connection reset")

	r := NewReconciler(students, contests, newFakeSubmissionStore())
	r.now = fixedNow

	work := *student
	snapshot := Snapshot{
		Info:     &codeforces.UserInfo{Handle: "dave", Rating: 1000, MaxRating: 1000},
		Contests: []codeforces.RatingChange{{ContestID: 7}},
	}
	err := r.Reconcile(context.Background(), &work, snapshot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contest 7")
	assert.Equal(t, 0, students.saved)
}
