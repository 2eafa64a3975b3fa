package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the account that owns credentials. Display identity lives on Profile.
type User struct {
	ID           uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Email        string    `json:"email" db:"email" gorm:"uniqueIndex;not null"`
	Username     string    `json:"username" db:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" db:"password_hash" gorm:"not null"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsSuperuser  bool      `json:"is_superuser" db:"is_superuser"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Profile *Profile `json:"profile,omitempty" gorm:"foreignKey:UserID"`
}

// TableName sets the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a primary key when the caller did not
func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// Profile is the public identity wrapping a User account
type Profile struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `json:"user_id" db:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	Username  string    `json:"username" db:"username" gorm:"uniqueIndex;not null"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Bio       string    `json:"bio" db:"bio" gorm:"type:text"`
	Image     string    `json:"image" db:"image"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User *User `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

// TableName sets the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate assigns a primary key when the caller did not
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProfileFollow is one directed edge of the follow graph: Follower follows Followed.
type ProfileFollow struct {
	FollowerID uuid.UUID `json:"follower_id" db:"follower_id" gorm:"primaryKey;type:uuid"`
	FollowedID uuid.UUID `json:"followed_id" db:"followed_id" gorm:"primaryKey;type:uuid;index"`
	CreatedAt  time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`

	Follower Profile `json:"-" gorm:"foreignKey:FollowerID;references:ID"`
	Followed Profile `json:"-" gorm:"foreignKey:FollowedID;references:ID"`
}

// TableName sets the table name for the ProfileFollow model
func (ProfileFollow) TableName() string {
	return "profile_follows"
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
