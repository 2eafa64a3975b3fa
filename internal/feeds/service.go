package feeds

import (
	"context"
	"fmt"
	"time"

	"authors-haven/internal/models"
	"authors-haven/internal/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FeedGlobal   = "global"
	FeedPersonal = "personal"

	defaultPerPage = 20
	maxPerPage     = 100
)

// FeedService handles feed operations
type FeedService struct {
	db       *gorm.DB
	articles *services.ArticleService
}

// NewFeedService creates a new feed service
func NewFeedService(db *gorm.DB, articles *services.ArticleService) *FeedService {
	return &FeedService{db: db, articles: articles}
}

// FeedResponse represents the structure returned by feed endpoints
type FeedResponse struct {
	Feed  string                 `json:"feed"`
	Items []services.ArticleView `json:"items"`
	Meta  FeedMeta               `json:"meta"`
}

// FeedMeta contains metadata about the feed
type FeedMeta struct {
	TotalItems    int       `json:"total_items"`
	Page          int       `json:"page"`
	PerPage       int       `json:"per_page"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

func normalize(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPerPage
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetGlobalFeed returns every article newest first
func (fs *FeedService) GetGlobalFeed(ctx context.Context, viewerUserID uuid.UUID, limit, offset int) (*FeedResponse, error) {
	query := fs.db.WithContext(ctx).Model(&models.Article{})
	return fs.build(ctx, FeedGlobal, query, viewerUserID, limit, offset)
}

// GetPersonalizedFeed returns articles written by the profiles the user follows
func (fs *FeedService) GetPersonalizedFeed(ctx context.Context, userID uuid.UUID, limit, offset int) (*FeedResponse, error) {
	if userID == uuid.Nil {
		return nil, services.Unauthorized("authentication required")
	}

	db := fs.db.WithContext(ctx)
	var profile models.Profile
	if err := db.Select("id").First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, services.NotFound("profile not found")
	}

	followed := db.Model(&models.ProfileFollow{}).Select("followed_id").Where("follower_id = ?", profile.ID)
	query := db.Model(&models.Article{}).Where("author_id IN (?)", followed)
	return fs.build(ctx, FeedPersonal, query, userID, limit, offset)
}

func (fs *FeedService) build(ctx context.Context, name string, query *gorm.DB, viewerUserID uuid.UUID, limit, offset int) (*FeedResponse, error) {
	limit, offset = normalize(limit, offset)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s feed: %w", name, err)
	}

	var articles []models.Article
	err := query.Session(&gorm.Session{}).
		Preload("Author").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s feed: %w", name, err)
	}

	meta := FeedMeta{
		TotalItems: int(total),
		Page:       offset/limit + 1,
		PerPage:    limit,
	}
	if len(articles) > 0 {
		meta.LastUpdatedAt = articles[0].CreatedAt
	}

	return &FeedResponse{
		Feed:  name,
		Items: fs.articles.Views(ctx, viewerUserID, articles),
		Meta:  meta,
	}, nil
}
