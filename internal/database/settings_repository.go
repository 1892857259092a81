package database

import (
	"context"

	"progresstracker/internal/models"

	"gorm.io/gorm"
)

type SettingsRepository struct {
	db *GormDB
}

func NewSettingsRepository(db *GormDB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetOrCreate returns the singleton settings row, creating it with defaults
// on first access.
func (r *SettingsRepository) GetOrCreate(ctx context.Context) (*models.SyncSettings, error) {
	var settings models.SyncSettings
	err := r.db.WithContext(ctx).First(&settings, "id = ?", 1).Error
	if err == nil {
		return &settings, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	defaults := models.DefaultSyncSettings()
	if err := r.db.WithContext(ctx).Create(defaults).Error; err != nil {
		return nil, err
	}
	return defaults, nil
}

func (r *SettingsRepository) Save(ctx context.Context, settings *models.SyncSettings) error {
	settings.ID = 1
	return r.db.WithContext(ctx).Save(settings).Error
}
