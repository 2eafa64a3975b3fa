package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"authors-haven/internal/events"
	"authors-haven/internal/logging"
	"authors-haven/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentService handles comments, replies and their edit history
type CommentService struct {
	db       *gorm.DB
	bus      *events.Bus
	profiles *ProfileService
}

// NewCommentService creates a new CommentService
func NewCommentService(db *gorm.DB, bus *events.Bus) *CommentService {
	return &CommentService{db: db, bus: bus, profiles: NewProfileService(db)}
}

// CommentInput is the body of a comment create request
type CommentInput struct {
	Body         string  `json:"body"`
	CommentingOn *string `json:"commenting_on"`
}

// CommentView is the client projection of a comment
type CommentView struct {
	ID           uuid.UUID   `json:"id"`
	Article      string      `json:"article"`
	Body         string      `json:"body"`
	CommentingOn *string     `json:"commenting_on"`
	Author       ProfileView `json:"author"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	LikeCount    int64       `json:"like_count"`
	DislikeCount int64       `json:"dislike_count"`
	EditCount    int         `json:"edit_count"`
	ReplyCount   int64       `json:"reply_count"`
}

// ReplyView is the client projection of a reply
type ReplyView struct {
	ID        uuid.UUID   `json:"id"`
	CommentID uuid.UUID   `json:"comment_id"`
	Body      string      `json:"body"`
	Author    ProfileView `json:"author"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	EditCount int         `json:"edit_count"`
}

// ValidateCommentingOn checks that a quoted span is present verbatim in the article body
func ValidateCommentingOn(articleBody string, commentingOn *string) error {
	if commentingOn == nil {
		return nil
	}
	if strings.TrimSpace(*commentingOn) == "" {
		return Validation("commenting_on", "blank", "this field may not be blank")
	}
	if !strings.Contains(articleBody, *commentingOn) {
		return Validation("commenting_on", "not_found_in_article", "the highlighted text was not found in the article")
	}
	return nil
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return Validation("body", "required", "body is required")
	}
	return nil
}

func loadComment(db *gorm.DB, id uuid.UUID) (*models.Comment, error) {
	var c models.Comment
	if err := db.Preload("Author").First(&c, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "comment")
	}
	return &c, nil
}

func loadReply(db *gorm.DB, id uuid.UUID) (*models.CommentReply, error) {
	var r models.CommentReply
	if err := db.Preload("Author").First(&r, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "reply")
	}
	return &r, nil
}

func (s *CommentService) commentView(db *gorm.DB, viewer uuid.UUID, slug string, c *models.Comment) CommentView {
	v := CommentView{
		ID:           c.ID,
		Article:      slug,
		Body:         c.Body,
		CommentingOn: c.CommentingOn,
		Author:       s.profiles.view(db, viewer, &c.Author),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		LikeCount:    db.Model(c).Association("LikedBy").Count(),
		DislikeCount: db.Model(c).Association("DislikedBy").Count(),
	}

	log := logging.WithComponent("comments").WithField("comment_id", c.ID)
	var err error
	if v.EditCount, err = editCount(db, models.EditSubjectComment, c.ID); err != nil {
		log.WithError(err).Warn("Failed to count edits")
	}
	if err := db.Model(&models.CommentReply{}).Where("comment_id = ?", c.ID).Count(&v.ReplyCount).Error; err != nil {
		log.WithError(err).Warn("Failed to count replies")
	}
	return v
}

func (s *CommentService) replyView(db *gorm.DB, viewer uuid.UUID, r *models.CommentReply) ReplyView {
	v := ReplyView{
		ID:        r.ID,
		CommentID: r.CommentID,
		Body:      r.Body,
		Author:    s.profiles.view(db, viewer, &r.Author),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	var err error
	if v.EditCount, err = editCount(db, models.EditSubjectReply, r.ID); err != nil {
		logging.WithComponent("comments").WithError(err).WithField("reply_id", r.ID).Warn("Failed to count edits")
	}
	return v
}

func articleSlug(db *gorm.DB, articleID uuid.UUID) string {
	var slug string
	db.Model(&models.Article{}).Where("id = ?", articleID).Pluck("slug", &slug)
	return slug
}

// Create adds a comment to the article, records its original snapshot and
// raises CommentPublished
func (s *CommentService) Create(ctx context.Context, userID uuid.UUID, slug string, in CommentInput) (*CommentView, error) {
	if err := validateBody(in.Body); err != nil {
		return nil, err
	}

	var comment models.Comment
	var article *models.Article
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		article, err = loadArticle(tx, slug)
		if err != nil {
			return err
		}
		if err := ValidateCommentingOn(article.Body, in.CommentingOn); err != nil {
			return err
		}

		comment = models.Comment{
			ArticleID:    article.ID,
			AuthorID:     a.Profile.ID,
			Body:         in.Body,
			CommentingOn: in.CommentingOn,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		comment.Author = a.Profile
		return recordHistory(tx, models.EditSubjectComment, comment.ID, models.ChangeOriginal, comment.Body)
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.CommentPublished{
		CommentID: comment.ID,
		ArticleID: article.ID,
		AuthorID:  comment.AuthorID,
	})

	db := s.db.WithContext(ctx)
	v := s.commentView(db, comment.AuthorID, slug, &comment)
	return &v, nil
}

// List returns the article's comments newest first
func (s *CommentService) List(ctx context.Context, viewerUserID uuid.UUID, slug string) ([]CommentView, error) {
	db := s.db.WithContext(ctx)
	article, err := loadArticle(db, slug)
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := db.Preload("Author").Where("article_id = ?", article.ID).Order("created_at DESC").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	viewer := viewerProfileID(db, viewerUserID)
	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		views = append(views, s.commentView(db, viewer, slug, &comments[i]))
	}
	return views, nil
}

// Get returns one comment
func (s *CommentService) Get(ctx context.Context, viewerUserID, id uuid.UUID) (*CommentView, error) {
	db := s.db.WithContext(ctx)
	c, err := loadComment(db, id)
	if err != nil {
		return nil, err
	}
	v := s.commentView(db, viewerProfileID(db, viewerUserID), articleSlug(db, c.ArticleID), c)
	return &v, nil
}

// CommentUpdate is the body of a comment PATCH. Absent fields are left as stored.
type CommentUpdate struct {
	Body         *string `json:"body"`
	CommentingOn *string `json:"commenting_on"`
}

// Update changes the fields present in the request. Only the author may edit;
// a modified snapshot is appended whenever a body is supplied.
func (s *CommentService) Update(ctx context.Context, userID, id uuid.UUID, in CommentUpdate) (*CommentView, error) {
	if in.Body != nil {
		if err := validateBody(*in.Body); err != nil {
			return nil, err
		}
	}

	var comment *models.Comment
	var slug string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		comment, err = loadComment(tx, id)
		if err != nil {
			return err
		}
		if !IsAuthor(a.Profile.ID, comment) {
			return Forbidden("you can only edit your own comments")
		}

		var article models.Article
		if err := tx.Select("id", "slug", "body").First(&article, "id = ?", comment.ArticleID).Error; err != nil {
			return notFoundOr(err, "article")
		}
		slug = article.Slug

		fields := map[string]any{}
		if in.CommentingOn != nil {
			if err := ValidateCommentingOn(article.Body, in.CommentingOn); err != nil {
				return err
			}
			fields["commenting_on"] = *in.CommentingOn
		}
		if in.Body != nil {
			fields["body"] = *in.Body
		}
		if len(fields) == 0 {
			return nil
		}

		if err := tx.Model(comment).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update comment: %w", err)
		}
		if in.CommentingOn != nil {
			comment.CommentingOn = in.CommentingOn
		}
		if in.Body == nil {
			return nil
		}
		comment.Body = *in.Body
		return recordHistory(tx, models.EditSubjectComment, comment.ID, models.ChangeModified, comment.Body)
	})
	if err != nil {
		return nil, err
	}

	v := s.commentView(s.db.WithContext(ctx), comment.AuthorID, slug, comment)
	return &v, nil
}

// Delete removes a comment with its replies and history. Author only.
func (s *CommentService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		comment, err := loadComment(tx, id)
		if err != nil {
			return err
		}
		if !IsAuthor(a.Profile.ID, comment) {
			return Forbidden("you can only delete your own comments")
		}
		return deleteComment(tx, id)
	})
}

func deleteComment(tx *gorm.DB, id uuid.UUID) error {
	var replyIDs []uuid.UUID
	if err := tx.Model(&models.CommentReply{}).Where("comment_id = ?", id).Pluck("id", &replyIDs).Error; err != nil {
		return err
	}
	for _, rid := range replyIDs {
		if err := deleteHistory(tx, models.EditSubjectReply, rid); err != nil {
			return err
		}
	}
	if err := tx.Where("comment_id = ?", id).Delete(&models.CommentReply{}).Error; err != nil {
		return fmt.Errorf("failed to delete replies: %w", err)
	}
	if err := deleteHistory(tx, models.EditSubjectComment, id); err != nil {
		return err
	}

	comment := &models.Comment{ID: id}
	for _, field := range []string{"LikedBy", "DislikedBy"} {
		if err := tx.Model(comment).Association(field).Clear(); err != nil {
			return fmt.Errorf("failed to clear %s: %w", field, err)
		}
	}
	if err := tx.Delete(comment).Error; err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// CreateReply answers a comment and records the original snapshot
func (s *CommentService) CreateReply(ctx context.Context, userID, commentID uuid.UUID, body string) (*ReplyView, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}

	var reply models.CommentReply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		if _, err := loadComment(tx, commentID); err != nil {
			return err
		}

		reply = models.CommentReply{CommentID: commentID, AuthorID: a.Profile.ID, Body: body}
		if err := tx.Create(&reply).Error; err != nil {
			return fmt.Errorf("failed to create reply: %w", err)
		}
		reply.Author = a.Profile
		return recordHistory(tx, models.EditSubjectReply, reply.ID, models.ChangeOriginal, body)
	})
	if err != nil {
		return nil, err
	}

	v := s.replyView(s.db.WithContext(ctx), reply.AuthorID, &reply)
	return &v, nil
}

// ListReplies returns a comment's replies newest first
func (s *CommentService) ListReplies(ctx context.Context, viewerUserID, commentID uuid.UUID) ([]ReplyView, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadComment(db, commentID); err != nil {
		return nil, err
	}

	var replies []models.CommentReply
	if err := db.Preload("Author").Where("comment_id = ?", commentID).Order("created_at DESC").Find(&replies).Error; err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}

	viewer := viewerProfileID(db, viewerUserID)
	views := make([]ReplyView, 0, len(replies))
	for i := range replies {
		views = append(views, s.replyView(db, viewer, &replies[i]))
	}
	return views, nil
}

// GetReply returns one reply
func (s *CommentService) GetReply(ctx context.Context, viewerUserID, id uuid.UUID) (*ReplyView, error) {
	db := s.db.WithContext(ctx)
	r, err := loadReply(db, id)
	if err != nil {
		return nil, err
	}
	v := s.replyView(db, viewerProfileID(db, viewerUserID), r)
	return &v, nil
}

// UpdateReply replaces a reply body when one is supplied and appends a
// modified snapshot. Author only.
func (s *CommentService) UpdateReply(ctx context.Context, userID, id uuid.UUID, body *string) (*ReplyView, error) {
	if body != nil {
		if err := validateBody(*body); err != nil {
			return nil, err
		}
	}

	var reply *models.CommentReply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		reply, err = loadReply(tx, id)
		if err != nil {
			return err
		}
		if !IsAuthor(a.Profile.ID, reply) {
			return Forbidden("you can only edit your own replies")
		}
		if body == nil {
			return nil
		}

		if err := tx.Model(reply).Update("body", *body).Error; err != nil {
			return fmt.Errorf("failed to update reply: %w", err)
		}
		reply.Body = *body
		return recordHistory(tx, models.EditSubjectReply, reply.ID, models.ChangeModified, reply.Body)
	})
	if err != nil {
		return nil, err
	}

	v := s.replyView(s.db.WithContext(ctx), reply.AuthorID, reply)
	return &v, nil
}

// DeleteReply removes a reply and its history. Author only.
func (s *CommentService) DeleteReply(ctx context.Context, userID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		reply, err := loadReply(tx, id)
		if err != nil {
			return err
		}
		if !IsAuthor(a.Profile.ID, reply) {
			return Forbidden("you can only delete your own replies")
		}
		if err := deleteHistory(tx, models.EditSubjectReply, id); err != nil {
			return err
		}
		if err := tx.Delete(&models.CommentReply{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete reply: %w", err)
		}
		return nil
	})
}
