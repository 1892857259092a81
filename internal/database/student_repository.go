package database

import (
	"context"
	"time"

	"progresstracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudentRepository struct {
	db *GormDB
}

func NewStudentRepository(db *GormDB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) CreateStudent(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *StudentRepository) GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).First(&student, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) GetStudentByHandle(ctx context.Context, handle string) (*models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).First(&student, "handle = ?", handle).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) ListStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

// ListActiveStudents returns active students in creation order. The sync
// orchestrator relies on this order being stable within a run.
func (r *StudentRepository) ListActiveStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

// ListInactiveStudents returns active students with reminders enabled whose
// last observed submission is older than the cutoff or missing entirely.
func (r *StudentRepository) ListInactiveStudents(ctx context.Context, before time.Time) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("active = ? AND reminders_enabled = ?", true, true).
		Where("last_submission_at IS NULL OR last_submission_at < ?", before).
		Order("created_at ASC, id ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *StudentRepository) SaveStudent(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

// DeleteStudent removes the student row; contest results and submission
// records go with it via the cascade constraints.
func (r *StudentRepository) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Student{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *StudentRepository) IncrementReminderCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		UpdateColumn("reminder_count", gorm.Expr("reminder_count + 1")).Error
}
