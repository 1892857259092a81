// Package notify finds students who have gone quiet and sends them reminder
// emails.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"progresstracker/internal/models"

	"github.com/google/uuid"
)

// InactiveStudentStore lists notification candidates and persists the
// per-student reminder counter.
type InactiveStudentStore interface {
	ListInactiveStudents(ctx context.Context, before time.Time) ([]models.Student, error)
	IncrementReminderCount(ctx context.Context, id uuid.UUID) error
}

type SettingsStore interface {
	GetOrCreate(ctx context.Context) (*models.SyncSettings, error)
}

type ReminderSender interface {
	SendReminder(ctx context.Context, settings *models.SyncSettings, student *models.Student) error
}

// Summary reports the outcome of one inactivity scan.
type Summary struct {
	Scanned  int `json:"scanned"`
	Notified int `json:"notified"`
}

// Notifier scans for inactive students and dispatches reminders. A student
// with no submission ever observed counts as inactive, not as exempt.
type Notifier struct {
	students InactiveStudentStore
	settings SettingsStore
	sender   ReminderSender
	now      func() time.Time
}

func NewNotifier(students InactiveStudentStore, settings SettingsStore, sender ReminderSender) *Notifier {
	return &Notifier{
		students: students,
		settings: settings,
		sender:   sender,
		now:      time.Now,
	}
}

// CheckInactiveAndNotify selects eligible students and attempts delivery for
// each. One student's delivery failure never blocks the others; the reminder
// counter is only bumped after a successful send.
func (n *Notifier) CheckInactiveAndNotify(ctx context.Context) (Summary, error) {
	settings, err := n.settings.GetOrCreate(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load sync settings: %w", err)
	}

	threshold := settings.InactivityThresholdDays
	if threshold <= 0 {
		threshold = models.DefaultInactivityThresholdDays
	}
	cutoff := n.now().AddDate(0, 0, -threshold)

	students, err := n.students.ListInactiveStudents(ctx, cutoff)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list inactive students: %w", err)
	}

	log.Printf("Found %d inactive students", len(students))

	summary := Summary{Scanned: len(students)}
	for i := range students {
		student := &students[i]
		if err := n.sender.SendReminder(ctx, settings, student); err != nil {
			log.Printf("Error sending reminder to %s: %v", student.Name, err)
			continue
		}

		if err := n.students.IncrementReminderCount(ctx, student.ID); err != nil {
			log.Printf("Failed to record reminder for %s: %v", student.Name, err)
		}
		summary.Notified++
		log.Printf("Sent reminder email to %s", student.Name)
	}

	return summary, nil
}
