package database

import (
	"context"
	"time"

	"progresstracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

type ContestRepository struct {
	db *GormDB
}

func NewContestRepository(db *GormDB) *ContestRepository {
	return &ContestRepository{db: db}
}

// UpsertResult writes a contest result keyed by (student_id, contest_id).
// The external feed is authoritative: an existing row is overwritten with the
// latest fetched values.
func (r *ContestRepository) UpsertResult(ctx context.Context, result *models.ContestResult) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "contest_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"contest_name", "rank", "old_rating", "new_rating", "rating_change", "contest_at", "updated_at",
			}),
		}).
		Create(result).Error
}

func (r *ContestRepository) GetResultsByStudent(ctx context.Context, studentID uuid.UUID, since *time.Time) ([]models.ContestResult, error) {
	var results []models.ContestResult
	query := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("contest_at DESC")
	if since != nil {
		query = query.Where("contest_at >= ?", *since)
	}
	err := query.Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ContestRepository) CountResultsByStudent(ctx context.Context, studentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ContestResult{}).
		Where("student_id = ?", studentID).
		Count(&count).Error
	return count, err
}
