package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"authors-haven/internal/logging"
	"authors-haven/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileService reads and edits public profiles
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService creates a new ProfileService
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// ProfileView is a profile as seen by a (possibly anonymous) viewer
type ProfileView struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

// editableProfileFields maps request keys to columns
var editableProfileFields = map[string]string{
	"username":   "username",
	"first_name": "first_name",
	"last_name":  "last_name",
	"bio":        "bio",
	"image":      "image",
}

func (s *ProfileService) view(db *gorm.DB, viewerProfileID uuid.UUID, p *models.Profile) ProfileView {
	v := ProfileView{
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Bio:       p.Bio,
		Image:     p.Image,
	}
	if viewerProfileID != uuid.Nil && viewerProfileID != p.ID {
		following, err := isFollowing(db, viewerProfileID, p.ID)
		if err != nil {
			logging.WithComponent("profiles").WithError(err).WithField("profile_id", p.ID).Warn("Failed to resolve following flag")
		}
		v.Following = following
	}
	return v
}

// GetByUsername returns a profile view for viewerUserID (uuid.Nil when anonymous)
func (s *ProfileService) GetByUsername(ctx context.Context, viewerUserID uuid.UUID, username string) (*ProfileView, error) {
	db := s.db.WithContext(ctx)
	var p models.Profile
	if err := db.First(&p, "username = ?", username).Error; err != nil {
		return nil, notFoundOr(err, "profile")
	}
	v := s.view(db, viewerProfileID(db, viewerUserID), &p)
	return &v, nil
}

// GetByUserID loads the profile of a user
func (s *ProfileService) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "profile")
	}
	return &p, nil
}

// List returns all profiles except the viewer's own, ordered by username
func (s *ProfileService) List(ctx context.Context, viewerUserID uuid.UUID) ([]ProfileView, error) {
	db := s.db.WithContext(ctx)
	viewer := viewerProfileID(db, viewerUserID)

	query := db.Order("username")
	if viewer != uuid.Nil {
		query = query.Where("id <> ?", viewer)
	}

	var profiles []models.Profile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	views := make([]ProfileView, 0, len(profiles))
	for i := range profiles {
		views = append(views, s.view(db, viewer, &profiles[i]))
	}
	return views, nil
}

// Update edits the named profile. Only the owner may edit; unknown fields are rejected.
func (s *ProfileService) Update(ctx context.Context, actorUserID uuid.UUID, username string, fields map[string]any) (*ProfileView, error) {
	if len(fields) == 0 {
		return nil, Validation("", "empty", "no fields to update")
	}

	updates := make(map[string]any, len(fields))
	unknown := make([]string, 0)
	for key, value := range fields {
		column, ok := editableProfileFields[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		str, ok := value.(string)
		if !ok {
			return nil, Validation(key, "invalid", "must be a string")
		}
		updates[column] = strings.TrimSpace(str)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, Validation(unknown[0], "unknown_field", fmt.Sprintf("unknown profile field(s): %s", strings.Join(unknown, ", ")))
	}
	if name, ok := updates["username"]; ok && name == "" {
		return nil, Validation("username", "blank", "username cannot be blank")
	}

	var profile models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&profile, "username = ?", username).Error; err != nil {
			return notFoundOr(err, "profile")
		}
		if profile.UserID != actorUserID {
			return Forbidden("you can only edit your own profile")
		}

		if name, ok := updates["username"].(string); ok && name != profile.Username {
			var count int64
			if err := tx.Model(&models.Profile{}).Where("username = ? AND id <> ?", name, profile.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return Conflict("a user with this username already exists")
			}
			if err := tx.Model(&models.User{}).Where("id = ?", profile.UserID).Update("username", name).Error; err != nil {
				return fmt.Errorf("failed to rename user: %w", err)
			}
		}

		if err := tx.Model(&profile).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		return tx.First(&profile, "id = ?", profile.ID).Error
	})
	if err != nil {
		return nil, err
	}

	v := s.view(s.db.WithContext(ctx), profile.ID, &profile)
	return &v, nil
}
