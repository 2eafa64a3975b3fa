package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is one fan-out message shared by its recipients
type Notification struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Event     string    `json:"event" db:"event" gorm:"index"`
	Title     string    `json:"title" db:"title" gorm:"size:200;not null"`
	Body      string    `json:"body" db:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime;index"`

	Recipients []Profile `json:"-" gorm:"many2many:notification_recipients;"`
}

// TableName sets the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate assigns a primary key when the caller did not
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

// NotificationStatus is the per-recipient delivery ledger of a notification
type NotificationStatus struct {
	ID             uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	RecipientID    uuid.UUID `json:"recipient_id" db:"recipient_id" gorm:"type:uuid;not null;uniqueIndex:idx_status_recipient_notification"`
	NotificationID uuid.UUID `json:"notification_id" db:"notification_id" gorm:"type:uuid;not null;uniqueIndex:idx_status_recipient_notification"`
	WasReadInApp   bool      `json:"was_read_in_app" db:"was_read_in_app"`
	EmailWasSent   bool      `json:"email_was_sent" db:"email_was_sent"`
	CreatedAt      time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	Recipient    Profile      `json:"-" gorm:"foreignKey:RecipientID;references:ID"`
	Notification Notification `json:"-" gorm:"foreignKey:NotificationID;references:ID"`
}

// TableName sets the table name for the NotificationStatus model
func (NotificationStatus) TableName() string {
	return "notification_statuses"
}

// BeforeCreate assigns a primary key when the caller did not
func (s *NotificationStatus) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// NotificationSettings holds a profile's opt-ins. Rows are created with both flags on.
type NotificationSettings struct {
	ID                      uuid.UUID `json:"-" db:"id" gorm:"primaryKey;type:uuid"`
	ProfileID               uuid.UUID `json:"-" db:"profile_id" gorm:"type:uuid;not null;uniqueIndex"`
	AllowInAppNotifications bool      `json:"allow_in_app_notifications" db:"allow_in_app_notifications"`
	AllowEmailNotifications bool      `json:"allow_email_notifications" db:"allow_email_notifications"`
	UpdatedAt               time.Time `json:"-" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the NotificationSettings model
func (NotificationSettings) TableName() string {
	return "notification_settings"
}

// BeforeCreate assigns a primary key when the caller did not
func (s *NotificationSettings) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// DefaultNotificationSettings returns the opt-in defaults for a profile
func DefaultNotificationSettings(profileID uuid.UUID) NotificationSettings {
	return NotificationSettings{
		ProfileID:               profileID,
		AllowInAppNotifications: true,
		AllowEmailNotifications: true,
	}
}
