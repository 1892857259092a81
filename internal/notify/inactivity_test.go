package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"progresstracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInactiveStore struct {
	students   []models.Student
	cutoffSeen time.Time
	increments map[uuid.UUID]int
	incErr     error
}

func newFakeInactiveStore(students ...models.Student) *fakeInactiveStore {
	return &fakeInactiveStore{students: students, increments: make(map[uuid.UUID]int)}
}

func (s *fakeInactiveStore) ListInactiveStudents(_ context.Context, before time.Time) ([]models.Student, error) {
	s.cutoffSeen = before
	var out []models.Student
	for _, student := range s.students {
		if !student.Active || !student.RemindersEnabled {
			continue
		}
		if student.LastSubmissionAt == nil || student.LastSubmissionAt.Before(before) {
			out = append(out, student)
		}
	}
	return out, nil
}

func (s *fakeInactiveStore) IncrementReminderCount(_ context.Context, id uuid.UUID) error {
	if s.incErr != nil {
		return s.incErr
	}
	s.increments[id]++
	return nil
}

type fakeSettingsSource struct {
	settings *models.SyncSettings
}

func (s *fakeSettingsSource) GetOrCreate(_ context.Context) (*models.SyncSettings, error) {
	if s.settings == nil {
		return models.DefaultSyncSettings(), nil
	}
	return s.settings, nil
}

type fakeSender struct {
	sent    []string
	failFor map[string]error
}

func (s *fakeSender) SendReminder(_ context.Context, _ *models.SyncSettings, student *models.Student) error {
	if err := s.failFor[student.Email]; err != nil {
		return err
	}
	s.sent = append(s.sent, student.Email)
	return nil
}

func daysAgo(now time.Time, d int) *time.Time {
	t := now.AddDate(0, 0, -d)
	return &t
}

func TestCheckInactiveAndNotify(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	quiet := models.Student{
		ID: uuid.New(), Name: "Quiet", Email: "quiet@example.com",
		Active: true, RemindersEnabled: true, LastSubmissionAt: daysAgo(now, 10),
	}
	never := models.Student{
		ID: uuid.New(), Name: "Never", Email: "never@example.com",
		Active: true, RemindersEnabled: true,
	}
	recent := models.Student{
		ID: uuid.New(), Name: "Recent", Email: "recent@example.com",
		Active: true, RemindersEnabled: true, LastSubmissionAt: daysAgo(now, 2),
	}
	optedOut := models.Student{
		ID: uuid.New(), Name: "OptedOut", Email: "optedout@example.com",
		Active: true, RemindersEnabled: false, LastSubmissionAt: daysAgo(now, 30),
	}

	store := newFakeInactiveStore(quiet, never, recent, optedOut)
	sender := &fakeSender{}

	n := NewNotifier(store, &fakeSettingsSource{}, sender)
	n.now = func() time.Time { return now }

	summary, err := n.CheckInactiveAndNotify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Scanned: 2, Notified: 2}, summary)
	assert.ElementsMatch(t, []string{"quiet@example.com", "never@example.com"}, sender.sent)
	assert.Equal(t, now.AddDate(0, 0, -7), store.cutoffSeen)
	assert.Equal(t, 1, store.increments[quiet.ID])
	assert.Equal(t, 1, store.increments[never.ID])
	assert.Zero(t, store.increments[recent.ID])
	assert.Zero(t, store.increments[optedOut.ID])
}

func TestCheckInactiveUsesConfiguredThreshold(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	borderline := models.Student{
		ID: uuid.New(), Name: "Borderline", Email: "borderline@example.com",
		Active: true, RemindersEnabled: true, LastSubmissionAt: daysAgo(now, 10),
	}
	store := newFakeInactiveStore(borderline)
	sender := &fakeSender{}
	settings := &fakeSettingsSource{settings: &models.SyncSettings{
		ID: 1, SyncTime: "02:00", SyncFrequency: models.SyncFrequencyDaily,
		InactivityThresholdDays: 14,
	}}

	n := NewNotifier(store, settings, sender)
	n.now = func() time.Time { return now }

	summary, err := n.CheckInactiveAndNotify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, now.AddDate(0, 0, -14), store.cutoffSeen)
	assert.Equal(t, Summary{Scanned: 0, Notified: 0}, summary)
	assert.Empty(t, sender.sent)
}

func TestCheckInactiveSendFailureIsolated(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	first := models.Student{
		ID: uuid.New(), Name: "First", Email: "first@example.com",
		Active: true, RemindersEnabled: true, LastSubmissionAt: daysAgo(now, 20),
	}
	second := models.Student{
		ID: uuid.New(), Name: "Second", Email: "second@example.com",
		Active: true, RemindersEnabled: true, LastSubmissionAt: daysAgo(now, 20),
	}

	store := newFakeInactiveStore(first, second)
	sender := &fakeSender{failFor: map[string]error{
		"first@example.com": fmt.Errorf("smtp: connection refused"),
	}}

	n := NewNotifier(store, &fakeSettingsSource{}, sender)
	n.now = func() time.Time { return now }

	summary, err := n.CheckInactiveAndNotify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Scanned: 2, Notified: 1}, summary)
	assert.Equal(t, []string{"second@example.com"}, sender.sent)
	assert.Zero(t, store.increments[first.ID])
	assert.Equal(t, 1, store.increments[second.ID])
}
