package repositories

import (
	"errors"
	"fmt"

	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository owns the per-recipient delivery matrices. A row is
// materialized with defaults on first access; updates merge a partial patch
// and save the full record (last write wins).
type SettingsRepository interface {
	Get(userID string) (*models.NotificationSettings, error)
	Update(userID string, patch *models.SettingsPatch) (*models.NotificationSettings, error)
}

// PostgresSettingsRepository implements SettingsRepository with GORM.
type PostgresSettingsRepository struct {
	db *gorm.DB
}

// NewPostgresSettingsRepository creates a new PostgresSettingsRepository.
func NewPostgresSettingsRepository(db *gorm.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

// Get returns the recipient's settings, creating the default row if none
// exists yet.
func (r *PostgresSettingsRepository) Get(userID string) (*models.NotificationSettings, error) {
	var settings models.NotificationSettings
	err := r.db.First(&settings, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := models.DefaultSettings(userID)
		// DoNothing keeps a concurrent first access from failing on the
		// primary key; whoever lost the race reads the winner's row.
		if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(defaults).Error; err != nil {
			return nil, fmt.Errorf("materializing default settings: %w", err)
		}
		if err := r.db.First(&settings, "user_id = ?", userID).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Update merges the patch into the current settings and saves the whole row.
func (r *PostgresSettingsRepository) Update(userID string, patch *models.SettingsPatch) (*models.NotificationSettings, error) {
	settings, err := r.Get(userID)
	if err != nil {
		return nil, err
	}
	if err := settings.Apply(patch); err != nil {
		return nil, err
	}
	if err := r.db.Save(settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}
