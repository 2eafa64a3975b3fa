// Package models contains all data models for the Author's Haven backend
package models

import (
	"gorm.io/gorm"
)

// AllModels returns a slice of all model types for database migrations
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&ProfileFollow{},
		&Article{},
		&Rating{},
		&Bookmark{},
		&Report{},
		&ReadStat{},
		&Comment{},
		&CommentReply{},
		&EditHistory{},
		&Notification{},
		&NotificationStatus{},
		&NotificationSettings{},
	}
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
