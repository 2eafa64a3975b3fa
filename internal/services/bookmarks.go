package services

import (
	"context"
	"fmt"

	"authors-haven/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AddBookmark saves the article for the user
func (s *InteractionService) AddBookmark(ctx context.Context, userID uuid.UUID, slug string) (*models.Bookmark, error) {
	var bookmark models.Bookmark
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadActor(tx, userID); err != nil {
			return err
		}
		article, err := loadArticle(tx, slug)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Bookmark{}).Where("user_id = ? AND article_id = ?", userID, article.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return State("you already bookmarked this article")
		}

		bookmark = models.Bookmark{UserID: userID, ArticleID: article.ID}
		if err := tx.Create(&bookmark).Error; err != nil {
			return fmt.Errorf("failed to save bookmark: %w", err)
		}
		bookmark.Article = *article
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// RemoveBookmark deletes the user's bookmark of the article
func (s *InteractionService) RemoveBookmark(ctx context.Context, userID uuid.UUID, slug string) error {
	db := s.db.WithContext(ctx)
	article, err := loadArticle(db, slug)
	if err != nil {
		return err
	}

	res := db.Where("user_id = ? AND article_id = ?", userID, article.ID).Delete(&models.Bookmark{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete bookmark: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFound("bookmark not found")
	}
	return nil
}

// Bookmarks lists the user's bookmarks, newest first
func (s *InteractionService) Bookmarks(ctx context.Context, userID uuid.UUID) ([]models.Bookmark, error) {
	bookmarks := make([]models.Bookmark, 0)
	err := s.db.WithContext(ctx).
		Preload("Article.Author").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookmarks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return bookmarks, nil
}
