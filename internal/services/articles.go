package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"authors-haven/internal/events"
	"authors-haven/internal/logging"
	"authors-haven/internal/metadata"
	"authors-haven/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	recentReads     = 5
)

// ArticleService handles article CRUD, listing and read statistics
type ArticleService struct {
	db       *gorm.DB
	bus      *events.Bus
	profiles *ProfileService
}

// NewArticleService creates a new ArticleService
func NewArticleService(db *gorm.DB, bus *events.Bus) *ArticleService {
	return &ArticleService{db: db, bus: bus, profiles: NewProfileService(db)}
}

// ArticleInput is the body of a create request
type ArticleInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	TagList     []string `json:"tag_list"`
}

// ArticleUpdate is a partial edit; nil fields are left alone
type ArticleUpdate struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Body        *string   `json:"body"`
	TagList     *[]string `json:"tag_list"`
}

// ArticleFilter narrows List. String filters are case-insensitive contains.
type ArticleFilter struct {
	Title       string
	Author      string
	Tag         string
	FavoritedBy string
	Limit       int
	Offset      int
}

// ArticleView is the client projection of an article
type ArticleView struct {
	Slug           string      `json:"slug"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Body           string      `json:"body"`
	BodyHTML       string      `json:"body_html"`
	TagList        []string    `json:"tag_list"`
	Author         ProfileView `json:"author"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Favorited      bool        `json:"favorited"`
	FavoritesCount int         `json:"favoritesCount"`
	LikeCount      int64       `json:"like_count"`
	DislikeCount   int64       `json:"dislike_count"`
	AverageRating  int         `json:"average_rating"`
	ReadingTime    int64       `json:"reading_time"`
}

// ReadStatsView summarises what a user has read
type ReadStatsView struct {
	Total  int64        `json:"articles_read"`
	Recent []ReadRecord `json:"recent"`
}

// ReadRecord is one entry of ReadStatsView.Recent
type ReadRecord struct {
	Slug   string    `json:"slug"`
	Title  string    `json:"title"`
	ReadAt time.Time `json:"read_at"`
}

func loadArticle(db *gorm.DB, slug string) (*models.Article, error) {
	var a models.Article
	if err := db.Preload("Author").First(&a, "slug = ?", slug).Error; err != nil {
		return nil, notFoundOr(err, "article")
	}
	return &a, nil
}

func cleanTags(tags []string) pq.StringArray {
	seen := make(map[string]bool, len(tags))
	out := make(pq.StringArray, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// averageRating is floor(mean(scores)), 0 when unrated
func averageRating(db *gorm.DB, articleID uuid.UUID) int {
	var avg float64
	db.Model(&models.Rating{}).
		Where("article_id = ?", articleID).
		Select("COALESCE(AVG(score), 0)").
		Scan(&avg)
	return int(math.Floor(avg))
}

// descriptionExcerptLen bounds the description derived from the body when none was given
const descriptionExcerptLen = 160

// View projects an article for viewerUserID (uuid.Nil when anonymous)
func (s *ArticleService) View(ctx context.Context, viewerUserID uuid.UUID, a *models.Article) ArticleView {
	db := s.db.WithContext(ctx)
	viewer := viewerProfileID(db, viewerUserID)

	v := ArticleView{
		Slug:           a.Slug,
		Title:          a.Title,
		Description:    a.Description,
		Body:           a.Body,
		TagList:        []string(a.TagList),
		Author:         s.profiles.view(db, viewer, &a.Author),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		FavoritesCount: a.FavoritesCount,
		LikeCount:      db.Model(a).Association("LikedBy").Count(),
		DislikeCount:   db.Model(a).Association("DislikedBy").Count(),
		AverageRating:  averageRating(db, a.ID),
	}
	if v.TagList == nil {
		v.TagList = []string{}
	}
	if viewerUserID != uuid.Nil {
		v.Favorited = hasMember(db, a, "FavoritedBy", viewerUserID)
	}

	if v.Description == "" {
		v.Description = metadata.Excerpt(a.Body, descriptionExcerptLen)
	}
	if m, err := metadata.Extract(a.Body); err == nil {
		v.BodyHTML = m.HTMLContent
		v.ReadingTime = m.ReadingTime
	}
	return v
}

// Views projects a list of articles
func (s *ArticleService) Views(ctx context.Context, viewerUserID uuid.UUID, articles []models.Article) []ArticleView {
	views := make([]ArticleView, 0, len(articles))
	for i := range articles {
		views = append(views, s.View(ctx, viewerUserID, &articles[i]))
	}
	return views
}

// Create publishes a new article and raises ArticlePublished
func (s *ArticleService) Create(ctx context.Context, authorUserID uuid.UUID, in ArticleInput) (*ArticleView, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, Validation("title", "required", "title is required")
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, Validation("body", "required", "body is required")
	}

	db := s.db.WithContext(ctx)
	a, err := loadActor(db, authorUserID)
	if err != nil {
		return nil, err
	}

	article := &models.Article{
		Slug:        newSlug(in.Title),
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Body:        in.Body,
		TagList:     cleanTags(in.TagList),
		AuthorID:    a.Profile.ID,
	}
	if err := db.Create(article).Error; err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}
	article.Author = a.Profile

	logging.WithComponent("articles").WithFields(logrus.Fields{
		"slug":   article.Slug,
		"author": a.Profile.Username,
	}).Info("📝 Article published")

	s.bus.Publish(ctx, events.ArticlePublished{ArticleID: article.ID, AuthorID: a.Profile.ID})

	v := s.View(ctx, authorUserID, article)
	return &v, nil
}

// Get returns an article and records a read for authenticated non-authors
func (s *ArticleService) Get(ctx context.Context, viewerUserID uuid.UUID, slug string) (*ArticleView, error) {
	db := s.db.WithContext(ctx)
	article, err := loadArticle(db, slug)
	if err != nil {
		return nil, err
	}

	if viewer := viewerProfileID(db, viewerUserID); viewer != uuid.Nil && !IsAuthor(viewer, article) {
		stat := models.ReadStat{UserID: viewerUserID, ArticleID: article.ID}
		if err := db.Where(&stat).FirstOrCreate(&stat).Error; err != nil {
			logging.WithComponent("articles").WithError(err).Warn("Failed to record read")
		}
	}

	v := s.View(ctx, viewerUserID, article)
	return &v, nil
}

// Update edits an article. Only the author may edit and the slug never changes.
func (s *ArticleService) Update(ctx context.Context, actorUserID uuid.UUID, slug string, in ArticleUpdate) (*ArticleView, error) {
	db := s.db.WithContext(ctx)
	a, err := loadActor(db, actorUserID)
	if err != nil {
		return nil, err
	}
	article, err := loadArticle(db, slug)
	if err != nil {
		return nil, err
	}
	if !IsAuthor(a.Profile.ID, article) {
		return nil, Forbidden("you can only edit your own articles")
	}

	updates := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, Validation("title", "blank", "title cannot be blank")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Body != nil {
		if strings.TrimSpace(*in.Body) == "" {
			return nil, Validation("body", "blank", "body cannot be blank")
		}
		updates["body"] = *in.Body
	}
	if in.TagList != nil {
		updates["tag_list"] = cleanTags(*in.TagList)
	}

	if len(updates) > 0 {
		if err := db.Model(article).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update article: %w", err)
		}
	}

	article, err = loadArticle(db, slug)
	if err != nil {
		return nil, err
	}
	v := s.View(ctx, actorUserID, article)
	return &v, nil
}

// Delete removes an article and everything hanging off it. Author only.
func (s *ArticleService) Delete(ctx context.Context, actorUserID uuid.UUID, slug string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, actorUserID)
		if err != nil {
			return err
		}
		article, err := loadArticle(tx, slug)
		if err != nil {
			return err
		}
		if !IsAuthor(a.Profile.ID, article) {
			return Forbidden("you can only delete your own articles")
		}

		for _, field := range []string{"LikedBy", "DislikedBy", "FavoritedBy"} {
			if err := tx.Model(article).Association(field).Clear(); err != nil {
				return fmt.Errorf("failed to clear %s: %w", field, err)
			}
		}

		var commentIDs []uuid.UUID
		if err := tx.Model(&models.Comment{}).Where("article_id = ?", article.ID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		for _, id := range commentIDs {
			if err := deleteComment(tx, id); err != nil {
				return err
			}
		}

		for _, model := range []any{&models.Rating{}, &models.Bookmark{}, &models.Report{}, &models.ReadStat{}} {
			if err := tx.Where("article_id = ?", article.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete article dependents: %w", err)
			}
		}

		if err := tx.Delete(article).Error; err != nil {
			return fmt.Errorf("failed to delete article: %w", err)
		}
		return nil
	})
}

// tagCondition matches a lowercased pattern against the serialised tag list
func tagCondition(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "LOWER(array_to_string(articles.tag_list, ',')) LIKE ?"
	}
	return "LOWER(articles.tag_list) LIKE ?"
}

func contains(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// List returns one page of articles newest first and the total matching count
func (s *ArticleService) List(ctx context.Context, viewerUserID uuid.UUID, f ArticleFilter) ([]ArticleView, int64, error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&models.Article{})

	if f.Title != "" {
		query = query.Where("LOWER(articles.title) LIKE ?", contains(f.Title))
	}
	if f.Author != "" {
		query = query.Where("articles.author_id IN (?)",
			db.Model(&models.Profile{}).Select("id").Where("LOWER(username) LIKE ?", contains(f.Author)))
	}
	if f.Tag != "" {
		query = query.Where(tagCondition(db), contains(f.Tag))
	}
	if f.FavoritedBy != "" {
		query = query.Where("articles.id IN (?)",
			db.Table("article_favorites").
				Select("article_favorites.article_id").
				Joins("JOIN users ON users.id = article_favorites.user_id").
				Where("LOWER(users.username) LIKE ?", contains(f.FavoritedBy)))
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	var articles []models.Article
	err := query.Preload("Author").
		Order("articles.created_at DESC").
		Limit(pageSize(f.Limit)).
		Offset(max(f.Offset, 0)).
		Find(&articles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list articles: %w", err)
	}

	return s.Views(ctx, viewerUserID, articles), total, nil
}

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	return min(limit, maxPageSize)
}

// Tags returns the distinct tags across all articles, sorted
func (s *ArticleService) Tags(ctx context.Context) ([]string, error) {
	var lists []pq.StringArray
	if err := s.db.WithContext(ctx).Model(&models.Article{}).Pluck("tag_list", &lists).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}

	seen := map[string]bool{}
	tags := make([]string, 0)
	for _, list := range lists {
		for _, tag := range list {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// ReadStats returns how many articles the user read and the most recent ones
func (s *ArticleService) ReadStats(ctx context.Context, userID uuid.UUID) (*ReadStatsView, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadActor(db, userID); err != nil {
		return nil, err
	}

	stats := &ReadStatsView{Recent: []ReadRecord{}}
	if err := db.Model(&models.ReadStat{}).Where("user_id = ?", userID).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count reads: %w", err)
	}

	var reads []models.ReadStat
	err := db.Preload("Article").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(recentReads).
		Find(&reads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load reads: %w", err)
	}
	for _, r := range reads {
		stats.Recent = append(stats.Recent, ReadRecord{Slug: r.Article.Slug, Title: r.Article.Title, ReadAt: r.CreatedAt})
	}
	return stats, nil
}
