package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"authors-haven/internal/auth"
	"authors-haven/internal/logging"
	"authors-haven/internal/mailer"
	"authors-haven/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserService handles registration, activation, login, account updates and
// password resets
type UserService struct {
	db     *gorm.DB
	tokens *auth.TokenManager
	mail   MailQueue
	appURL string
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB, tokens *auth.TokenManager, mail MailQueue, appURL string) *UserService {
	return &UserService{
		db:     db,
		tokens: tokens,
		mail:   mail,
		appURL: strings.TrimRight(appURL, "/"),
	}
}

// Registration is the input of Register
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks presence and shape of the registration fields
func (r Registration) Validate() error {
	switch {
	case strings.TrimSpace(r.Email) == "":
		return Validation("email", "required", "email is required")
	case strings.TrimSpace(r.Username) == "":
		return Validation("username", "required", "username is required")
	case r.Password == "":
		return Validation("password", "required", "password is required")
	}

	if _, err := mail.ParseAddress(r.Email); err != nil {
		return Validation("email", "invalid", "enter a valid email address")
	}
	if strings.ContainsFunc(r.Username, unicode.IsSpace) {
		return Validation("username", "invalid", "username cannot contain spaces")
	}
	return validatePassword(r.Password)
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return Validation("password", "too_short", "password must be at least 8 characters long")
	}
	if !strings.ContainsFunc(password, unicode.IsLetter) || !strings.ContainsFunc(password, unicode.IsDigit) {
		return Validation("password", "too_weak", "password must contain at least one letter and one number")
	}
	return nil
}

// Register creates an inactive user with a profile and default notification
// settings, then emails an activation link.
func (s *UserService) Register(ctx context.Context, in Registration) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return Conflict("a user with this email already exists")
		}
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return Conflict("a user with this username already exists")
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		profile := &models.Profile{UserID: user.ID, Username: user.Username}
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		settings := models.DefaultNotificationSettings(profile.ID)
		if err := tx.Create(&settings).Error; err != nil {
			return fmt.Errorf("failed to create notification settings: %w", err)
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendActivation(ctx, user)
	return user, nil
}

func (s *UserService) sendActivation(ctx context.Context, user *models.User) {
	log := logging.WithComponent("users").WithField("user_id", user.ID)

	token, err := s.tokens.IssueActivation(user.ID)
	if err != nil {
		log.WithError(err).Error("Failed to issue activation token")
		return
	}

	msg := mailer.Message{
		To:      []string{user.Email},
		Subject: "Activate your Author's Haven account",
		Body: fmt.Sprintf("Hi %s,\n\nFollow this link to activate your account:\n%s/api/users/activate/%s\n",
			user.Username, s.appURL, token),
	}
	if err := s.mail.Enqueue(ctx, msg); err != nil {
		log.WithError(err).Error("Failed to enqueue activation email")
	}
}

// Activate marks the user in an activation token as active. It works once.
func (s *UserService) Activate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token, auth.PurposeActivate)
	if err != nil {
		return nil, Validation("token", "invalid", "activation link is invalid or expired")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	if user.IsActive {
		return nil, State("account is already activated")
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("is_active", true).Error; err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}

	logging.WithComponent("users").WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("✅ Account activated")
	return &user, nil
}

// LoginResult is returned by Login
type LoginResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Login checks credentials and returns an access token
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Unauthorized("a user with this email and password was not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, Unauthorized("a user with this email and password was not found")
	}
	if !user.IsActive {
		return nil, Forbidden("this account has not been activated")
	}

	token, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: &user, Token: token}, nil
}

// Get loads a user with their profile
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

// UserUpdate is the body of a current-user PATCH. Absent fields are left as stored.
type UserUpdate struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// Update changes the caller's own account. A new username is mirrored onto the profile.
func (s *UserService) Update(ctx context.Context, userID uuid.UUID, in UserUpdate) (*models.User, error) {
	updates := map[string]any{}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, Validation("email", "invalid", "enter a valid email address")
		}
		updates["email"] = email
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return nil, Validation("username", "blank", "username cannot be blank")
		}
		if strings.ContainsFunc(name, unicode.IsSpace) {
			return nil, Validation("username", "invalid", "username cannot contain spaces")
		}
		updates["username"] = name
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return notFoundOr(err, "user")
		}
		if len(updates) == 0 {
			return nil
		}

		var count int64
		if email, ok := updates["email"]; ok && email != user.Email {
			if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return Conflict("a user with this email already exists")
			}
		}
		if name, ok := updates["username"]; ok && name != user.Username {
			if err := tx.Model(&models.User{}).Where("username = ? AND id <> ?", name, user.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return Conflict("a user with this username already exists")
			}
			if err := tx.Model(&models.Profile{}).Where("user_id = ?", user.ID).Update("username", name).Error; err != nil {
				return fmt.Errorf("failed to rename profile: %w", err)
			}
		}

		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// RequestPasswordReset emails a reset link to the account registered under email
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Validation("email", "required", "email is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Validation("email", "not_found", "there is no user with this email address")
	}
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	token, err := s.tokens.IssueReset(user.ID)
	if err != nil {
		return err
	}

	msg := mailer.Message{
		To:      []string{user.Email},
		Subject: "You requested a password reset",
		Body: fmt.Sprintf("Hi %s,\n\nFollow this link to choose a new password:\n%s/api/users/password-reset/%s\n\nThe link expires in %d minutes. Ignore this email if you did not ask for a reset.\n",
			user.Username, s.appURL, token, int(auth.ResetTTL.Minutes())),
	}
	if err := s.mail.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("failed to enqueue password reset email: %w", err)
	}

	logging.WithComponent("users").WithField("user_id", user.ID).Info("🔑 Password reset requested")
	return nil
}

// CheckResetToken reports whether a reset link is still usable
func (s *UserService) CheckResetToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token, auth.PurposeReset)
	if err != nil {
		return nil, Validation("token", "invalid", "password reset link is invalid or expired")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

// ResetPassword sets a new password for the user named in a reset token
func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	user, err := s.CheckResetToken(ctx, token)
	if err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	logging.WithComponent("users").WithField("user_id", user.ID).Info("🔑 Password reset")
	return nil
}
