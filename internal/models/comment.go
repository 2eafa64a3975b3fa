package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment belongs to an article. CommentingOn, when set, is a span quoted from the article body.
type Comment struct {
	ID           uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ArticleID    uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;not null;index"`
	AuthorID     uuid.UUID `json:"author_id" db:"author_id" gorm:"type:uuid;not null;index"`
	Body         string    `json:"body" db:"body" gorm:"type:text;not null"`
	CommentingOn *string   `json:"commenting_on" db:"commenting_on" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Article    Article `json:"-" gorm:"foreignKey:ArticleID;references:ID"`
	Author     Profile `json:"author" gorm:"foreignKey:AuthorID;references:ID"`
	LikedBy    []User  `json:"-" gorm:"many2many:comment_likes;"`
	DislikedBy []User  `json:"-" gorm:"many2many:comment_dislikes;"`
}

// TableName sets the table name for the Comment model
func (Comment) TableName() string {
	return "comments"
}

// BeforeCreate assigns a primary key when the caller did not
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ReactionField implements Reactable
func (c *Comment) ReactionField(kind ReactionKind) string {
	if kind == Like {
		return "LikedBy"
	}
	return "DislikedBy"
}

// OwnerProfileID implements Reactable and Authored
func (c *Comment) OwnerProfileID() uuid.UUID {
	return c.AuthorID
}

// CommentReply is a reply to a comment
type CommentReply struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	CommentID uuid.UUID `json:"comment_id" db:"comment_id" gorm:"type:uuid;not null;index"`
	AuthorID  uuid.UUID `json:"author_id" db:"author_id" gorm:"type:uuid;not null;index"`
	Body      string    `json:"body" db:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	Comment Comment `json:"-" gorm:"foreignKey:CommentID;references:ID"`
	Author  Profile `json:"author" gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName sets the table name for the CommentReply model
func (CommentReply) TableName() string {
	return "comment_replies"
}

// BeforeCreate assigns a primary key when the caller did not
func (r *CommentReply) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// OwnerProfileID implements Authored
func (r *CommentReply) OwnerProfileID() uuid.UUID {
	return r.AuthorID
}

// EditSubject tells comment history apart from reply history
type EditSubject string

const (
	EditSubjectComment EditSubject = "comment"
	EditSubjectReply   EditSubject = "reply"
)

// ChangeType classifies one edit history entry
type ChangeType string

const (
	ChangeOriginal ChangeType = "original"
	ChangeModified ChangeType = "modified"
)

// EditHistory is one append-only snapshot of a comment or reply body
type EditHistory struct {
	ID         uuid.UUID   `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Subject    EditSubject `json:"subject" db:"subject" gorm:"not null;index:idx_edit_subject"`
	SubjectID  uuid.UUID   `json:"subject_id" db:"subject_id" gorm:"type:uuid;not null;index:idx_edit_subject"`
	ChangeType ChangeType  `json:"change_type" db:"change_type" gorm:"not null"`
	Body       string      `json:"body" db:"body" gorm:"type:text;not null"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// TableName sets the table name for the EditHistory model
func (EditHistory) TableName() string {
	return "edit_histories"
}

// BeforeCreate assigns a primary key when the caller did not
func (e *EditHistory) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
