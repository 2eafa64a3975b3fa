package services

import (
	"context"
	"fmt"

	"authors-haven/internal/events"
	"authors-haven/internal/logging"
	"authors-haven/internal/metrics"
	"authors-haven/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FollowService manages the directed follow graph between profiles
type FollowService struct {
	db  *gorm.DB
	bus *events.Bus
}

// NewFollowService creates a new FollowService
func NewFollowService(db *gorm.DB, bus *events.Bus) *FollowService {
	return &FollowService{db: db, bus: bus}
}

func isFollowing(db *gorm.DB, followerID, followedID uuid.UUID) (bool, error) {
	var count int64
	err := db.Model(&models.ProfileFollow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return count > 0, nil
}

func (s *FollowService) resolve(tx *gorm.DB, actorUserID uuid.UUID, username string) (*actor, *models.Profile, error) {
	a, err := loadActor(tx, actorUserID)
	if err != nil {
		return nil, nil, err
	}
	var target models.Profile
	if err := tx.First(&target, "username = ?", username).Error; err != nil {
		return nil, nil, notFoundOr(err, "profile")
	}
	return a, &target, nil
}

// Follow adds the edge actor -> username and raises FollowCreated
func (s *FollowService) Follow(ctx context.Context, actorUserID uuid.UUID, username string) (*ProfileView, error) {
	var a *actor
	var target *models.Profile

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		a, target, err = s.resolve(tx, actorUserID, username)
		if err != nil {
			return err
		}
		if a.Profile.ID == target.ID {
			return Conflict("you cannot follow yourself")
		}
		following, err := isFollowing(tx, a.Profile.ID, target.ID)
		if err != nil {
			return err
		}
		if following {
			return Conflict("you already followed %s", target.Username)
		}

		edge := models.ProfileFollow{FollowerID: a.Profile.ID, FollowedID: target.ID}
		if err := tx.Create(&edge).Error; err != nil {
			return fmt.Errorf("failed to follow: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Follows.WithLabelValues("follow").Inc()
	logging.WithComponent("follows").WithFields(logrus.Fields{
		"follower": a.Profile.Username,
		"followed": target.Username,
	}).Info("Profile followed")

	s.bus.Publish(ctx, events.FollowCreated{FollowerID: a.Profile.ID, FollowedID: target.ID})

	return &ProfileView{
		Username:  target.Username,
		FirstName: target.FirstName,
		LastName:  target.LastName,
		Bio:       target.Bio,
		Image:     target.Image,
		Following: true,
	}, nil
}

// Unfollow removes the edge actor -> username. No event is raised.
func (s *FollowService) Unfollow(ctx context.Context, actorUserID uuid.UUID, username string) (*ProfileView, error) {
	var target *models.Profile

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, t, err := s.resolve(tx, actorUserID, username)
		if err != nil {
			return err
		}
		target = t
		if a.Profile.ID == target.ID {
			return Conflict("you cannot unfollow yourself")
		}

		res := tx.Where("follower_id = ? AND followed_id = ?", a.Profile.ID, target.ID).Delete(&models.ProfileFollow{})
		if res.Error != nil {
			return fmt.Errorf("failed to unfollow: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return Conflict("you are not following %s", target.Username)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Follows.WithLabelValues("unfollow").Inc()
	return &ProfileView{
		Username:  target.Username,
		FirstName: target.FirstName,
		LastName:  target.LastName,
		Bio:       target.Bio,
		Image:     target.Image,
	}, nil
}

// IsFollowing reports whether the user's profile follows username
func (s *FollowService) IsFollowing(ctx context.Context, actorUserID uuid.UUID, username string) (bool, error) {
	db := s.db.WithContext(ctx)
	a, target, err := s.resolve(db, actorUserID, username)
	if err != nil {
		return false, err
	}
	return isFollowing(db, a.Profile.ID, target.ID)
}

// Followers returns the usernames following the user, oldest edge first
func (s *FollowService) Followers(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.usernames(ctx, userID, "profile_follows.followed_id = ?", "profile_follows.follower_id")
}

// Following returns the usernames the user follows, oldest edge first
func (s *FollowService) Following(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.usernames(ctx, userID, "profile_follows.follower_id = ?", "profile_follows.followed_id")
}

func (s *FollowService) usernames(ctx context.Context, userID uuid.UUID, where, joinColumn string) ([]string, error) {
	db := s.db.WithContext(ctx)
	a, err := loadActor(db, userID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0)
	err = db.Model(&models.ProfileFollow{}).
		Joins("JOIN profiles ON profiles.id = "+joinColumn).
		Where(where, a.Profile.ID).
		Order("profile_follows.created_at").
		Pluck("profiles.username", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list follows: %w", err)
	}
	return names, nil
}
