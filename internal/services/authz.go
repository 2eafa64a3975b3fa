package services

import (
	"context"

	"authors-haven/internal/mailer"
	"authors-haven/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IsAuthor reports whether the profile owns the content. Reactions, ratings
// and reports all use this one predicate.
func IsAuthor(profileID uuid.UUID, content models.Authored) bool {
	return profileID != uuid.Nil && content.OwnerProfileID() == profileID
}

// MailQueue is the enqueue side of the mail pipeline
type MailQueue interface {
	Enqueue(ctx context.Context, msg mailer.Message) error
}

// actor is an authenticated user together with their profile
type actor struct {
	User    models.User
	Profile models.Profile
}

func loadActor(db *gorm.DB, userID uuid.UUID) (*actor, error) {
	if userID == uuid.Nil {
		return nil, Unauthorized("authentication required")
	}

	var a actor
	if err := db.First(&a.User, "id = ?", userID).Error; err != nil {
		if KindOf(err) == KindNotFound {
			return nil, Unauthorized("user no longer exists")
		}
		return nil, notFoundOr(err, "user")
	}
	if err := db.First(&a.Profile, "user_id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "profile")
	}
	return &a, nil
}

// viewerProfileID returns the profile of an optional viewer, or uuid.Nil
func viewerProfileID(db *gorm.DB, userID uuid.UUID) uuid.UUID {
	if userID == uuid.Nil {
		return uuid.Nil
	}
	var p models.Profile
	if err := db.Select("id").First(&p, "user_id = ?", userID).Error; err != nil {
		return uuid.Nil
	}
	return p.ID
}
