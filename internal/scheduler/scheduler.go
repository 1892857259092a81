// Package scheduler owns the single recurring sync job. Settings updates swap
// the job atomically; at most one job is registered at any time.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"progresstracker/internal/common"
	"progresstracker/internal/models"
	"progresstracker/internal/notify"
	datasync "progresstracker/internal/sync"

	"github.com/robfig/cron/v3"
)

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

type SettingsStore interface {
	GetOrCreate(ctx context.Context) (*models.SyncSettings, error)
	Save(ctx context.Context, settings *models.SyncSettings) error
}

type SyncRunner interface {
	SyncAll(ctx context.Context) (datasync.Summary, error)
}

type InactivityChecker interface {
	CheckInactiveAndNotify(ctx context.Context) (notify.Summary, error)
}

type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	settings SettingsStore
	syncer   SyncRunner
	notifier InactivityChecker
	jobID    cron.EntryID
	hasJob   bool
}

func New(settings SettingsStore, syncer SyncRunner, notifier InactivityChecker) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		settings: settings,
		syncer:   syncer,
		notifier: notifier,
	}
}

// Start loads the stored cadence (creating defaults on first run), registers
// the recurring job and starts the cron loop. Malformed stored values fall
// back to 02:00 daily and are written back.
func (s *Scheduler) Start(ctx context.Context) error {
	settings, err := s.settings.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sync settings: %w", err)
	}

	if !timeOfDayPattern.MatchString(settings.SyncTime) || !models.ValidSyncFrequency(settings.SyncFrequency) {
		log.Printf("Stored schedule %q/%q is invalid, falling back to %s %s",
			settings.SyncTime, settings.SyncFrequency, models.DefaultSyncTime, models.DefaultSyncFrequency)
		settings.SyncTime = models.DefaultSyncTime
		settings.SyncFrequency = models.DefaultSyncFrequency
		if err := s.settings.Save(ctx, settings); err != nil {
			return fmt.Errorf("failed to repair sync settings: %w", err)
		}
	}

	spec, err := cronSpec(settings.SyncTime, settings.SyncFrequency)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.swapJob(spec); err != nil {
		return err
	}
	s.cron.Start()

	log.Printf("Sync job scheduled for %s %s", settings.SyncTime, settings.SyncFrequency)
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// UpdateSchedule validates the new cadence, persists it and replaces the
// recurring job. On validation failure nothing is mutated and the existing
// job keeps running.
func (s *Scheduler) UpdateSchedule(ctx context.Context, timeOfDay string, frequency models.SyncFrequency) error {
	if !timeOfDayPattern.MatchString(timeOfDay) {
		return fmt.Errorf("sync time %q is not a valid HH:mm value: %w", timeOfDay, common.ErrValidation)
	}
	if !models.ValidSyncFrequency(frequency) {
		return fmt.Errorf("sync frequency %q must be daily, weekly or monthly: %w", frequency, common.ErrValidation)
	}

	spec, err := cronSpec(timeOfDay, frequency)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.settings.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sync settings: %w", err)
	}
	settings.SyncTime = timeOfDay
	settings.SyncFrequency = frequency
	if err := s.settings.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save sync settings: %w", err)
	}

	if err := s.swapJob(spec); err != nil {
		return err
	}

	log.Printf("Sync schedule updated to %s %s", timeOfDay, frequency)
	return nil
}

// ActiveJobs reports how many recurring jobs are registered. It exists to
// make the at-most-one-job invariant observable.
func (s *Scheduler) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cron.Entries())
}

// swapJob replaces the registered job; callers hold s.mu.
func (s *Scheduler) swapJob(spec string) error {
	if s.hasJob {
		s.cron.Remove(s.jobID)
		s.hasJob = false
	}
	id, err := s.cron.AddFunc(spec, s.runScheduledSync)
	if err != nil {
		return fmt.Errorf("failed to register sync job: %w", err)
	}
	s.jobID = id
	s.hasJob = true
	return nil
}

// runScheduledSync is the job body: full sweep, then the inactivity scan.
// Failures are logged and never escape; a bad sync run must not take the
// process down.
func (s *Scheduler) runScheduledSync() {
	ctx := context.Background()

	log.Println("Running scheduled sync job...")
	summary, err := s.syncer.SyncAll(ctx)
	if err != nil {
		log.Printf("Scheduled sync failed: %v", err)
	} else {
		log.Printf("Scheduled sync finished: %d attempted, %d succeeded, %d failed",
			summary.Attempted, summary.Succeeded, summary.Failed)
	}

	notified, err := s.notifier.CheckInactiveAndNotify(ctx)
	if err != nil {
		log.Printf("Inactivity check failed: %v", err)
	} else {
		log.Printf("Inactivity check finished: %d scanned, %d notified", notified.Scanned, notified.Notified)
	}
}

// cronSpec maps the cadence to a 5-field cron expression: daily at HH:mm,
// weekly on Sunday, monthly on the 1st.
func cronSpec(timeOfDay string, frequency models.SyncFrequency) (string, error) {
	parts := strings.SplitN(timeOfDay, ":", 2)
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("sync time %q: %w", timeOfDay, common.ErrValidation)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("sync time %q: %w", timeOfDay, common.ErrValidation)
	}

	switch frequency {
	case models.SyncFrequencyDaily:
		return fmt.Sprintf("%d %d * * *", minutes, hours), nil
	case models.SyncFrequencyWeekly:
		return fmt.Sprintf("%d %d * * 0", minutes, hours), nil
	case models.SyncFrequencyMonthly:
		return fmt.Sprintf("%d %d 1 * *", minutes, hours), nil
	default:
		return "", fmt.Errorf("sync frequency %q: %w", frequency, common.ErrValidation)
	}
}
