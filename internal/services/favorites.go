package services

import (
	"context"
	"fmt"

	"authors-haven/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FavoriteResult is the outcome of a favorite write
type FavoriteResult struct {
	Favorited bool         `json:"favorited"`
	Message   string       `json:"message"`
	Article   *ArticleView `json:"article"`
}

type favoriteOp int

const (
	favoriteAdd favoriteOp = iota
	favoriteRemove
	favoriteToggle
)

// Favorite adds the article to the user's favorites
func (s *InteractionService) Favorite(ctx context.Context, userID uuid.UUID, slug string) (*FavoriteResult, error) {
	return s.favorite(ctx, userID, slug, favoriteAdd)
}

// Unfavorite removes the article from the user's favorites
func (s *InteractionService) Unfavorite(ctx context.Context, userID uuid.UUID, slug string) (*FavoriteResult, error) {
	return s.favorite(ctx, userID, slug, favoriteRemove)
}

// ToggleFavorite flips membership in favorited_by
func (s *InteractionService) ToggleFavorite(ctx context.Context, userID uuid.UUID, slug string) (*FavoriteResult, error) {
	return s.favorite(ctx, userID, slug, favoriteToggle)
}

// favorite writes the membership change and recomputes favorites_count from
// the set in the same transaction
func (s *InteractionService) favorite(ctx context.Context, userID uuid.UUID, slug string, op favoriteOp) (*FavoriteResult, error) {
	var article *models.Article
	var favorited bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		article, err = loadArticle(tx, slug)
		if err != nil {
			return err
		}

		present := hasMember(tx, article, "FavoritedBy", userID)
		switch {
		case op == favoriteAdd && present:
			return State("you already favorited this article")
		case op == favoriteRemove && !present:
			return State("you have not favorited this article")
		}

		if present {
			err = tx.Model(article).Association("FavoritedBy").Delete(&a.User)
		} else {
			err = tx.Model(article).Association("FavoritedBy").Append(&a.User)
		}
		if err != nil {
			return fmt.Errorf("failed to update favorites: %w", err)
		}
		favorited = !present

		count := tx.Model(article).Association("FavoritedBy").Count()
		if err := tx.Model(&models.Article{}).Where("id = ?", article.ID).UpdateColumn("favorites_count", count).Error; err != nil {
			return fmt.Errorf("failed to update favorites count: %w", err)
		}
		article.FavoritesCount = int(count)
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := "article unfavorited"
	if favorited {
		msg = "article favorited"
	}
	view := s.articles.View(ctx, userID, article)
	return &FavoriteResult{Favorited: favorited, Message: msg, Article: &view}, nil
}
