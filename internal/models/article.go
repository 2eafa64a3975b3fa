package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Article is an authored piece of writing identified by an immutable slug
type Article struct {
	ID          uuid.UUID      `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Slug        string         `json:"slug" db:"slug" gorm:"uniqueIndex;not null"`
	Title       string         `json:"title" db:"title" gorm:"not null"`
	Description string         `json:"description" db:"description"`
	Body        string         `json:"body" db:"body" gorm:"type:text;not null"`
	TagList     pq.StringArray `json:"tag_list" db:"tag_list" gorm:"type:text[]"`
	AuthorID    uuid.UUID      `json:"author_id" db:"author_id" gorm:"type:uuid;not null;index"`

	// Materialized size of FavoritedBy, recomputed on every favorite write
	FavoritesCount int `json:"favoritesCount" db:"favorites_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Author      Profile `json:"author" gorm:"foreignKey:AuthorID;references:ID"`
	LikedBy     []User  `json:"-" gorm:"many2many:article_likes;"`
	DislikedBy  []User  `json:"-" gorm:"many2many:article_dislikes;"`
	FavoritedBy []User  `json:"-" gorm:"many2many:article_favorites;"`
}

// TableName sets the table name for the Article model
func (Article) TableName() string {
	return "articles"
}

// BeforeCreate assigns a primary key when the caller did not
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// ReactionField implements Reactable
func (a *Article) ReactionField(kind ReactionKind) string {
	if kind == Like {
		return "LikedBy"
	}
	return "DislikedBy"
}

// OwnerProfileID implements Reactable and Authored
func (a *Article) OwnerProfileID() uuid.UUID {
	return a.AuthorID
}

// Rating is one user's 1-5 score of an article
type Rating struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `json:"user_id" db:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_article"`
	ArticleID uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_article;index"`
	Score     int       `json:"rate_score" db:"score" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Rating model
func (Rating) TableName() string {
	return "ratings"
}

// BeforeCreate assigns a primary key when the caller did not
func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Bookmark is a user's saved reference to an article
type Bookmark struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `json:"user_id" db:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_article"`
	ArticleID uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_article"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`

	Article Article `json:"article" gorm:"foreignKey:ArticleID;references:ID"`
}

// TableName sets the table name for the Bookmark model
func (Bookmark) TableName() string {
	return "bookmarks"
}

// BeforeCreate assigns a primary key when the caller did not
func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// Report flags an article for moderation
type Report struct {
	ID         uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ReporterID uuid.UUID `json:"reporter_id" db:"reporter_id" gorm:"type:uuid;not null;uniqueIndex:idx_report_reporter_article"`
	ArticleID  uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;not null;uniqueIndex:idx_report_reporter_article"`
	Reason     string    `json:"reason" db:"reason" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`

	Reporter Profile `json:"reporter" gorm:"foreignKey:ReporterID;references:ID"`
	Article  Article `json:"article" gorm:"foreignKey:ArticleID;references:ID"`
}

// TableName sets the table name for the Report model
func (Report) TableName() string {
	return "reports"
}

// BeforeCreate assigns a primary key when the caller did not
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// ReadStat records that a user opened an article they did not write
type ReadStat struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `json:"user_id" db:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_read_user_article"`
	ArticleID uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;not null;uniqueIndex:idx_read_user_article"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`

	Article Article `json:"article" gorm:"foreignKey:ArticleID;references:ID"`
}

// TableName sets the table name for the ReadStat model
func (ReadStat) TableName() string {
	return "read_stats"
}

// BeforeCreate assigns a primary key when the caller did not
func (r *ReadStat) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
