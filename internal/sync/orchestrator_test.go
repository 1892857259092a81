package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"progresstracker/internal/codeforces"
	"progresstracker/internal/common"
	"progresstracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderedStudentStore struct {
	order []*models.Student
	byID  map[uuid.UUID]*models.Student
}

func newOrderedStudentStore(students ...*models.Student) *orderedStudentStore {
	s := &orderedStudentStore{byID: make(map[uuid.UUID]*models.Student)}
	for _, student := range students {
		s.order = append(s.order, student)
		s.byID[student.ID] = student
	}
	return s
}

func (s *orderedStudentStore) GetStudent(_ context.Context, id uuid.UUID) (*models.Student, error) {
	student, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *student
	return &copied, nil
}

func (s *orderedStudentStore) ListActiveStudents(_ context.Context) ([]models.Student, error) {
	var out []models.Student
	for _, student := range s.order {
		if student.Active {
			out = append(out, *student)
		}
	}
	return out, nil
}

func (s *orderedStudentStore) SaveStudent(_ context.Context, student *models.Student) error {
	copied := *student
	s.byID[student.ID] = &copied
	for i, existing := range s.order {
		if existing.ID == student.ID {
			s.order[i] = &copied
		}
	}
	return nil
}

type fakePlatformClient struct {
	failingHandles map[string]error
	calls          []string
}

func (c *fakePlatformClient) fail(handle string, err error) {
	if c.failingHandles == nil {
		c.failingHandles = make(map[string]error)
	}
	c.failingHandles[handle] = err
}

func (c *fakePlatformClient) UserInfo(_ context.Context, handle string) (*codeforces.UserInfo, error) {
	c.calls = append(c.calls, handle)
	if err := c.failingHandles[handle]; err != nil {
		return nil, err
	}
	return &codeforces.UserInfo{Handle: handle, Rating: 1500, MaxRating: 1550}, nil
}

func (c *fakePlatformClient) RatingHistory(_ context.Context, handle string) ([]codeforces.RatingChange, error) {
	return []codeforces.RatingChange{
		{ContestID: 1, OldRating: 1400, NewRating: 1500, RatingUpdateTimeSeconds: 1700000000},
	}, nil
}

func (c *fakePlatformClient) RecentSubmissions(_ context.Context, handle string, count int) ([]codeforces.Submission, error) {
	return []codeforces.Submission{
		{ID: 1, CreationTimeSeconds: 1700000100, Verdict: "OK"},
	}, nil
}

type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(_ context.Context) error {
	p.waits++
	return p.err
}

func newTestOrchestrator(students StudentStore, client PlatformClient, pacer Pacer) *Orchestrator {
	reconciler := NewReconciler(students, newFakeContestStore(), newFakeSubmissionStore())
	reconciler.now = fixedNow
	return NewOrchestrator(students, client, reconciler, pacer, 100)
}

func TestSyncOneUnknownStudent(t *testing.T) {
	store := newOrderedStudentStore()
	o := newTestOrchestrator(store, &fakePlatformClient{}, NewDelayPacer(0))

	err := o.SyncOne(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSyncOnePropagatesLookupFailure(t *testing.T) {
	student := &models.Student{ID: uuid.New(), Handle: "ghost", Active: true}
	store := newOrderedStudentStore(student)

	client := &fakePlatformClient{}
	client.fail("ghost", &codeforces.LookupError{Handle: "ghost", Comment: "handle not found"})

	o := newTestOrchestrator(store, client, NewDelayPacer(0))
	err := o.SyncOne(context.Background(), student.ID)
	require.Error(t, err)

	var lookupErr *codeforces.LookupError
	assert.ErrorAs(t, err, &lookupErr)
}

func TestSyncAllIsolatesPerStudentFailures(t *testing.T) {
	a := &models.Student{ID: uuid.New(), Handle: "a", Active: true}
	k := &models.Student{ID: uuid.New(), Handle: "k", Active: true}
	z := &models.Student{ID: uuid.New(), Handle: "z", Active: true}
	store := newOrderedStudentStore(a, k, z)

	client := &fakePlatformClient{}
	client.fail("k", fmt.Errorf("connection timed out"))

	pacer := &countingPacer{}
	o := newTestOrchestrator(store, client, pacer)

	summary, err := o.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Attempted: 3, Succeeded: 2, Failed: 1}, summary)
	assert.Equal(t, []string{"a", "k", "z"}, client.calls)

	updated, err := store.GetStudent(context.Background(), z.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastSyncedAt)

	failed, err := store.GetStudent(context.Background(), k.ID)
	require.NoError(t, err)
	assert.Nil(t, failed.LastSyncedAt)
}

func TestSyncAllPacesBetweenStudentsOnly(t *testing.T) {
	a := &models.Student{ID: uuid.New(), Handle: "a", Active: true}
	b := &models.Student{ID: uuid.New(), Handle: "b", Active: true}
	c := &models.Student{ID: uuid.New(), Handle: "c", Active: true}
	store := newOrderedStudentStore(a, b, c)

	pacer := &countingPacer{}
	o := newTestOrchestrator(store, &fakePlatformClient{}, pacer)

	_, err := o.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pacer.waits)
}

func TestSyncAllAbortsWhenPacerInterrupted(t *testing.T) {
	a := &models.Student{ID: uuid.New(), Handle: "a", Active: true}
	b := &models.Student{ID: uuid.New(), Handle: "b", Active: true}
	store := newOrderedStudentStore(a, b)

	pacer := &countingPacer{err: context.Canceled}
	o := newTestOrchestrator(store, &fakePlatformClient{}, pacer)

	summary, err := o.SyncAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestSyncAllSkipsInactiveStudents(t *testing.T) {
	active := &models.Student{ID: uuid.New(), Handle: "active", Active: true}
	parked := &models.Student{ID: uuid.New(), Handle: "parked", Active: false}
	store := newOrderedStudentStore(active, parked)

	client := &fakePlatformClient{}
	o := newTestOrchestrator(store, client, NewDelayPacer(0))

	summary, err := o.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, []string{"active"}, client.calls)
}

func TestDelayPacerZeroInterval(t *testing.T) {
	start := time.Now()
	require.NoError(t, NewDelayPacer(0).Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
