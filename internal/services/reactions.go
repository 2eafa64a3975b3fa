package services

import (
	"context"
	"fmt"

	"authors-haven/internal/events"
	"authors-haven/internal/metrics"
	"authors-haven/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InteractionService owns reactions, favorites, ratings, bookmarks and reports
type InteractionService struct {
	db         *gorm.DB
	bus        *events.Bus
	mail       MailQueue
	adminEmail string
	articles   *ArticleService
}

// NewInteractionService creates a new InteractionService
func NewInteractionService(db *gorm.DB, bus *events.Bus, mail MailQueue, adminEmail string) *InteractionService {
	return &InteractionService{
		db:         db,
		bus:        bus,
		mail:       mail,
		adminEmail: adminEmail,
		articles:   NewArticleService(db, bus),
	}
}

// ReactionOutcome says what a reaction write did
type ReactionOutcome string

const (
	OutcomeAdded    ReactionOutcome = "added"
	OutcomeChanged  ReactionOutcome = "changed"
	OutcomeReversed ReactionOutcome = "reversed"
)

// ReactionResult is returned by React and Unreact
type ReactionResult struct {
	Outcome      ReactionOutcome     `json:"outcome"`
	Kind         models.ReactionKind `json:"kind"`
	Message      string              `json:"message"`
	LikeCount    int64               `json:"like_count"`
	DislikeCount int64               `json:"dislike_count"`
}

// hasMember reports whether userID is in the many2many association field of target
func hasMember(db *gorm.DB, target any, field string, userID uuid.UUID) bool {
	return db.Model(target).Where("users.id = ?", userID).Association(field).Count() > 0
}

func targetName(target models.Reactable) string {
	switch target.(type) {
	case *models.Article:
		return "article"
	case *models.Comment:
		return "comment"
	}
	return "content"
}

// React applies kind to target. Applying the active kind again is a state
// error; applying the opposite kind switches sides in one transaction so the
// user is never in both sets.
func (s *InteractionService) React(ctx context.Context, userID uuid.UUID, target models.Reactable, kind models.ReactionKind) (*ReactionResult, error) {
	name := targetName(target)
	var outcome ReactionOutcome

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		if IsAuthor(a.Profile.ID, target) {
			return State("you cannot %s your own %s", kind, name)
		}

		field := target.ReactionField(kind)
		opposite := target.ReactionField(kind.Opposite())

		if hasMember(tx, target, field, userID) {
			return State("you already %sd this %s", kind, name)
		}

		outcome = OutcomeAdded
		if hasMember(tx, target, opposite, userID) {
			if err := tx.Model(target).Association(opposite).Delete(&a.User); err != nil {
				return fmt.Errorf("failed to remove %s: %w", kind.Opposite(), err)
			}
			outcome = OutcomeChanged
		}

		if err := tx.Model(target).Association(field).Append(&a.User); err != nil {
			return fmt.Errorf("failed to add %s: %w", kind, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Reactions.WithLabelValues(name, string(kind), string(outcome)).Inc()

	if comment, ok := target.(*models.Comment); ok && kind == models.Like {
		s.bus.Publish(ctx, events.CommentLiked{CommentID: comment.ID, UserID: userID})
	}

	msg := fmt.Sprintf("added %s", kind)
	if outcome == OutcomeChanged {
		msg = fmt.Sprintf("changed to %s", kind)
	}
	return s.result(ctx, target, outcome, kind, msg), nil
}

// Unreact removes an active reaction of kind
func (s *InteractionService) Unreact(ctx context.Context, userID uuid.UUID, target models.Reactable, kind models.ReactionKind) (*ReactionResult, error) {
	name := targetName(target)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		if IsAuthor(a.Profile.ID, target) {
			return State("you cannot %s your own %s", kind, name)
		}

		field := target.ReactionField(kind)
		if !hasMember(tx, target, field, userID) {
			return State("you have not %sd this %s", kind, name)
		}
		if err := tx.Model(target).Association(field).Delete(&a.User); err != nil {
			return fmt.Errorf("failed to remove %s: %w", kind, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Reactions.WithLabelValues(name, string(kind), string(OutcomeReversed)).Inc()
	return s.result(ctx, target, OutcomeReversed, kind, fmt.Sprintf("%s reversed", kind)), nil
}

// IsReacted reports whether the user currently has kind on target
func (s *InteractionService) IsReacted(ctx context.Context, userID uuid.UUID, target models.Reactable, kind models.ReactionKind) bool {
	if userID == uuid.Nil {
		return false
	}
	return hasMember(s.db.WithContext(ctx), target, target.ReactionField(kind), userID)
}

// ReactionCounts returns the live sizes of the like and dislike sets
func (s *InteractionService) ReactionCounts(ctx context.Context, target models.Reactable) (likes, dislikes int64) {
	db := s.db.WithContext(ctx)
	likes = db.Model(target).Association(target.ReactionField(models.Like)).Count()
	dislikes = db.Model(target).Association(target.ReactionField(models.Dislike)).Count()
	return likes, dislikes
}

func (s *InteractionService) result(ctx context.Context, target models.Reactable, outcome ReactionOutcome, kind models.ReactionKind, msg string) *ReactionResult {
	likes, dislikes := s.ReactionCounts(ctx, target)
	return &ReactionResult{
		Outcome:      outcome,
		Kind:         kind,
		Message:      msg,
		LikeCount:    likes,
		DislikeCount: dislikes,
	}
}

// Article loads a reaction target by slug
func (s *InteractionService) Article(ctx context.Context, slug string) (*models.Article, error) {
	return loadArticle(s.db.WithContext(ctx), slug)
}

// Comment loads a reaction target by id
func (s *InteractionService) Comment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	return loadComment(s.db.WithContext(ctx), id)
}
