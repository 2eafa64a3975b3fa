package notifications

import (
	"context"
	"fmt"

	"authors-haven/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Directory is the content-store view the fan-out needs to resolve recipients
type Directory interface {
	Article(ctx context.Context, id uuid.UUID) (*models.Article, error)
	Comment(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ProfileOfUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	// Followers returns the profiles following profileID
	Followers(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error)
	// Favoriters returns the profiles whose users favorited the article
	Favoriters(ctx context.Context, articleID uuid.UUID) ([]uuid.UUID, error)
}

// GormDirectory implements Directory on the application database
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a new GormDirectory
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) Article(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	var a models.Article
	if err := d.db.WithContext(ctx).Preload("Author").First(&a, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load article %s: %w", id, err)
	}
	return &a, nil
}

func (d *GormDirectory) Comment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var c models.Comment
	if err := d.db.WithContext(ctx).Preload("Author").First(&c, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load comment %s: %w", id, err)
	}
	return &c, nil
}

func (d *GormDirectory) Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := d.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", id, err)
	}
	return &p, nil
}

func (d *GormDirectory) ProfileOfUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := d.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load profile of user %s: %w", userID, err)
	}
	return &p, nil
}

func (d *GormDirectory) Followers(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.db.WithContext(ctx).Model(&models.ProfileFollow{}).
		Where("followed_id = ?", profileID).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load followers: %w", err)
	}
	return ids, nil
}

func (d *GormDirectory) Favoriters(ctx context.Context, articleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.db.WithContext(ctx).Model(&models.Profile{}).
		Joins("JOIN article_favorites ON article_favorites.user_id = profiles.user_id").
		Where("article_favorites.article_id = ?", articleID).
		Pluck("profiles.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load favoriters: %w", err)
	}
	return ids, nil
}
