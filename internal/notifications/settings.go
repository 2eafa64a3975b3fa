package notifications

import (
	"context"
	"fmt"

	"authors-haven/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettingsReader returns a profile's opt-ins
type SettingsReader interface {
	Get(ctx context.Context, profileID uuid.UUID) (models.NotificationSettings, error)
}

// SettingsUpdate is a partial update; nil fields are left alone
type SettingsUpdate struct {
	AllowInAppNotifications *bool `json:"allow_in_app_notifications"`
	AllowEmailNotifications *bool `json:"allow_email_notifications"`
}

// SettingsStore persists NotificationSettings rows
type SettingsStore struct {
	db *gorm.DB
}

// NewSettingsStore creates a new SettingsStore
func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the profile's settings, creating the opt-in defaults on first use
func (s *SettingsStore) Get(ctx context.Context, profileID uuid.UUID) (models.NotificationSettings, error) {
	var settings models.NotificationSettings
	err := s.db.WithContext(ctx).
		Where(models.NotificationSettings{ProfileID: profileID}).
		Attrs(models.DefaultNotificationSettings(profileID)).
		FirstOrCreate(&settings).Error
	if err != nil {
		return settings, fmt.Errorf("failed to load notification settings: %w", err)
	}
	return settings, nil
}

// Update applies the non-nil fields of u
func (s *SettingsStore) Update(ctx context.Context, profileID uuid.UUID, u SettingsUpdate) (models.NotificationSettings, error) {
	settings, err := s.Get(ctx, profileID)
	if err != nil {
		return settings, err
	}

	changes := map[string]any{}
	if u.AllowInAppNotifications != nil {
		changes["allow_in_app_notifications"] = *u.AllowInAppNotifications
		settings.AllowInAppNotifications = *u.AllowInAppNotifications
	}
	if u.AllowEmailNotifications != nil {
		changes["allow_email_notifications"] = *u.AllowEmailNotifications
		settings.AllowEmailNotifications = *u.AllowEmailNotifications
	}
	if len(changes) == 0 {
		return settings, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.NotificationSettings{}).Where("id = ?", settings.ID).Updates(changes).Error; err != nil {
		return settings, fmt.Errorf("failed to update notification settings: %w", err)
	}
	return settings, nil
}
