package database

import (
	"context"
	"time"

	"progresstracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	db *GormDB
}

func NewSubmissionRepository(db *GormDB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// UpsertRecord writes a submission keyed by its external id. Replaying the
// same feed overwrites rather than duplicates.
func (r *SubmissionRepository) UpsertRecord(ctx context.Context, record *models.SubmissionRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"student_id", "contest_id", "problem_index", "problem_name",
				"problem_rating", "verdict", "language", "submitted_at", "updated_at",
			}),
		}).
		Create(record).Error
}

func (r *SubmissionRepository) GetRecordsByStudent(ctx context.Context, studentID uuid.UUID, since *time.Time, limit int) ([]models.SubmissionRecord, error) {
	var records []models.SubmissionRecord
	query := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("submitted_at DESC")
	if since != nil {
		query = query.Where("submitted_at >= ?", *since)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ProblemStats aggregates a student's accepted submissions over a window.
type ProblemStats struct {
	TotalSolved      int            `json:"total_solved"`
	AverageRating    int            `json:"average_rating"`
	MostDifficult    int            `json:"most_difficult"`
	ProblemsPerDay   float64        `json:"problems_per_day"`
	RatingBuckets    map[string]int `json:"rating_buckets"`
	SubmissionsByDay map[string]int `json:"submissions_by_day"`
}

// GetProblemStats computes solve statistics for the charts the UI renders:
// counts, average and max problem rating, rating-bucket distribution and a
// per-day heatmap of accepted submissions.
func (r *SubmissionRepository) GetProblemStats(ctx context.Context, studentID uuid.UUID, days int) (*ProblemStats, error) {
	since := time.Now().AddDate(0, 0, -days)

	var solved []models.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND verdict = ? AND submitted_at >= ?", studentID, models.VerdictAccepted, since).
		Order("submitted_at DESC").
		Find(&solved).Error
	if err != nil {
		return nil, err
	}

	stats := &ProblemStats{
		TotalSolved: len(solved),
		RatingBuckets: map[string]int{
			"800-1000":  0,
			"1001-1200": 0,
			"1201-1400": 0,
			"1401-1600": 0,
			"1601-1800": 0,
			"1801-2000": 0,
			"2000+":     0,
		},
		SubmissionsByDay: make(map[string]int),
	}

	ratingSum := 0
	for _, record := range solved {
		rating := record.ProblemRating
		ratingSum += rating
		if rating > stats.MostDifficult {
			stats.MostDifficult = rating
		}

		switch {
		case rating <= 1000:
			stats.RatingBuckets["800-1000"]++
		case rating <= 1200:
			stats.RatingBuckets["1001-1200"]++
		case rating <= 1400:
			stats.RatingBuckets["1201-1400"]++
		case rating <= 1600:
			stats.RatingBuckets["1401-1600"]++
		case rating <= 1800:
			stats.RatingBuckets["1601-1800"]++
		case rating <= 2000:
			stats.RatingBuckets["1801-2000"]++
		default:
			stats.RatingBuckets["2000+"]++
		}

		day := record.SubmittedAt.UTC().Format("2006-01-02")
		stats.SubmissionsByDay[day]++
	}

	if len(solved) > 0 {
		stats.AverageRating = ratingSum / len(solved)
	}
	if days > 0 {
		stats.ProblemsPerDay = float64(len(solved)) / float64(days)
	}

	return stats, nil
}
