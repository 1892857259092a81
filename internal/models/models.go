package models

import (
	"time"

	"github.com/google/uuid"
)

type SyncFrequency string

const (
	SyncFrequencyDaily   SyncFrequency = "daily"
	SyncFrequencyWeekly  SyncFrequency = "weekly"
	SyncFrequencyMonthly SyncFrequency = "monthly"
)

// Codeforces verdict strings. Stored as-is; the provider may introduce new
// verdicts, so the column stays a plain string rather than a pg enum.
type Verdict string

const (
	VerdictAccepted            Verdict = "OK"
	VerdictWrongAnswer         Verdict = "WRONG_ANSWER"
	VerdictTimeLimitExceeded   Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictMemoryLimitExceeded Verdict = "MEMORY_LIMIT_EXCEEDED"
	VerdictRuntimeError        Verdict = "RUNTIME_ERROR"
	VerdictCompilationError    Verdict = "COMPILATION_ERROR"
	VerdictSkipped             Verdict = "SKIPPED"
	VerdictTesting             Verdict = "TESTING"
)

type Student struct {
	ID               uuid.UUID          `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name             string             `json:"name" gorm:"size:255;not null"`
	Email            string             `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PhoneNumber      string             `json:"phone_number" gorm:"size:32"`
	Handle           string             `json:"handle" gorm:"size:64;not null;uniqueIndex"`
	CurrentRating    int                `json:"current_rating" gorm:"not null;default:0"`
	MaxRating        int                `json:"max_rating" gorm:"not null;default:0"`
	LastSyncedAt     *time.Time         `json:"last_synced_at"`
	LastSubmissionAt *time.Time         `json:"last_submission_at"`
	ReminderCount    int                `json:"reminder_count" gorm:"not null;default:0"`
	RemindersEnabled bool               `json:"reminders_enabled" gorm:"not null;default:true"`
	Active           bool               `json:"active" gorm:"not null;default:true"`
	CreatedAt        time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
	ContestResults   []ContestResult    `json:"contest_results,omitempty" gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	Submissions      []SubmissionRecord `json:"submissions,omitempty" gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
}

// ContestResult is keyed by (student, external contest id); that composite key
// is the upsert key that makes replaying the same rating feed idempotent.
type ContestResult struct {
	StudentID    uuid.UUID `json:"student_id" gorm:"type:uuid;primaryKey"`
	ContestID    int64     `json:"contest_id" gorm:"primaryKey;autoIncrement:false"`
	ContestName  string    `json:"contest_name" gorm:"size:255;not null"`
	Rank         int       `json:"rank" gorm:"not null"`
	OldRating    int       `json:"old_rating" gorm:"not null"`
	NewRating    int       `json:"new_rating" gorm:"not null"`
	RatingChange int       `json:"rating_change" gorm:"not null"`
	ContestAt    time.Time `json:"contest_at" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// SubmissionRecord uses the externally assigned submission id as primary key.
// Codeforces assigns these once and never reuses them, so the id alone is the
// upsert key.
type SubmissionRecord struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	StudentID     uuid.UUID `json:"student_id" gorm:"type:uuid;not null;index"`
	ContestID     int64     `json:"contest_id" gorm:"not null;default:0"`
	ProblemIndex  string    `json:"problem_index" gorm:"size:16;not null"`
	ProblemName   string    `json:"problem_name" gorm:"size:255;not null"`
	ProblemRating int       `json:"problem_rating" gorm:"not null;default:0"`
	Verdict       Verdict   `json:"verdict" gorm:"size:40;not null"`
	Language      string    `json:"language" gorm:"size:64;not null"`
	SubmittedAt   time.Time `json:"submitted_at" gorm:"not null;index"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// SyncSettings is a singleton row, lazily created with defaults on first read.
type SyncSettings struct {
	ID                      uint          `json:"id" gorm:"primaryKey"`
	SyncTime                string        `json:"sync_time" gorm:"size:5;not null;default:'02:00'"`
	SyncFrequency           SyncFrequency `json:"sync_frequency" gorm:"size:10;not null;default:'daily'"`
	InactivityThresholdDays int           `json:"inactivity_threshold_days" gorm:"not null;default:7"`
	SMTPHost                string        `json:"smtp_host" gorm:"size:255"`
	SMTPPort                int           `json:"smtp_port" gorm:"not null;default:0"`
	SMTPUser                string        `json:"smtp_user" gorm:"size:255"`
	SMTPPassword            string        `json:"-" gorm:"size:255"`
	FromEmail               string        `json:"from_email" gorm:"size:255"`
	CreatedAt               time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt               time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

const (
	DefaultSyncTime                = "02:00"
	DefaultSyncFrequency           = SyncFrequencyDaily
	DefaultInactivityThresholdDays = 7
)

func DefaultSyncSettings() *SyncSettings {
	return &SyncSettings{
		ID:                      1,
		SyncTime:                DefaultSyncTime,
		SyncFrequency:           DefaultSyncFrequency,
		InactivityThresholdDays: DefaultInactivityThresholdDays,
	}
}

func ValidSyncFrequency(f SyncFrequency) bool {
	switch f {
	case SyncFrequencyDaily, SyncFrequencyWeekly, SyncFrequencyMonthly:
		return true
	}
	return false
}
