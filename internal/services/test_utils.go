package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"authors-haven/internal/auth"
	"authors-haven/internal/mailer"
	"authors-haven/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a migrated in-memory sqlite database for tests in any package
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Every pooled connection to :memory: would otherwise see its own empty database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// RecordingQueue captures enqueued mail in tests
type RecordingQueue struct {
	mu       sync.Mutex
	messages []mailer.Message
	Err      error
}

func (q *RecordingQueue) Enqueue(ctx context.Context, msg mailer.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.messages = append(q.messages, msg)
	return nil
}

// Sent returns a copy of everything enqueued so far
func (q *RecordingQueue) Sent() []mailer.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]mailer.Message(nil), q.messages...)
}

// CreateTestUser inserts an active user with profile and default notification settings
func CreateTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        fmt.Sprintf("%s@example.com", username),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}

	profile := &models.Profile{UserID: user.ID, Username: username}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("Failed to create profile %s: %v", username, err)
	}
	settings := models.DefaultNotificationSettings(profile.ID)
	if err := db.Create(&settings).Error; err != nil {
		t.Fatalf("Failed to create settings %s: %v", username, err)
	}

	user.Profile = profile
	return user
}

// CreateTestArticle publishes an article directly, bypassing events
func CreateTestArticle(t *testing.T, db *gorm.DB, author *models.User, title, body string) *models.Article {
	t.Helper()

	article := &models.Article{
		Slug:     fmt.Sprintf("%s-%s", Slugify(title), randomSuffix()),
		Title:    title,
		Body:     body,
		AuthorID: author.Profile.ID,
	}
	if err := db.Create(article).Error; err != nil {
		t.Fatalf("Failed to create article: %v", err)
	}
	return article
}
