package services

import (
	"context"
	"fmt"

	"authors-haven/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minScore = 1
	maxScore = 5
)

// RatingResult is returned by Rate
type RatingResult struct {
	Rating        models.Rating `json:"rating"`
	AverageRating int           `json:"average_rating"`
}

// Rate records the user's score for an article. Scores outside 1..5 are a
// validation error, the author can never rate, and a second rating conflicts.
func (s *InteractionService) Rate(ctx context.Context, userID uuid.UUID, slug string, score int) (*RatingResult, error) {
	if score < minScore || score > maxScore {
		return nil, Validation("rate_score", "out_of_range", fmt.Sprintf("score must be between %d and %d", minScore, maxScore))
	}

	var result RatingResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		article, err := loadArticle(tx, slug)
		if err != nil {
			return err
		}
		if IsAuthor(a.Profile.ID, article) {
			return Forbidden("you cannot rate your own article")
		}

		var count int64
		if err := tx.Model(&models.Rating{}).Where("user_id = ? AND article_id = ?", userID, article.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return Conflict("you already rated this article")
		}

		result.Rating = models.Rating{UserID: userID, ArticleID: article.ID, Score: score}
		if err := tx.Create(&result.Rating).Error; err != nil {
			return fmt.Errorf("failed to save rating: %w", err)
		}
		result.AverageRating = averageRating(tx, article.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
