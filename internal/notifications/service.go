// Package notifications turns domain events into notifications, tracks their
// per-recipient delivery status and exposes the in-app inbox.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"authors-haven/internal/events"
	"authors-haven/internal/logging"
	"authors-haven/internal/mailer"
	"authors-haven/internal/metrics"
	"authors-haven/internal/models"
	"authors-haven/internal/services"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// View is the client projection of a notification
type View struct {
	ID        uuid.UUID `json:"id"`
	Event     string    `json:"event"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func viewOf(n *models.Notification) View {
	return View{ID: n.ID, Event: n.Event, Title: n.Title, Body: n.Body, CreatedAt: n.CreatedAt}
}

// Service fans events out to recipients and owns the notification ledger
type Service struct {
	db        *gorm.DB
	dir       Directory
	settings  SettingsReader
	mail      services.MailQueue
	push      Pusher
	templates *Templates
	appURL    string
	log       *logrus.Entry
}

// NewService creates a new Service. mail and push may be nil.
func NewService(db *gorm.DB, dir Directory, settings SettingsReader, mail services.MailQueue, push Pusher, templates *Templates, appURL string) *Service {
	return &Service{
		db:        db,
		dir:       dir,
		settings:  settings,
		mail:      mail,
		push:      push,
		templates: templates,
		appURL:    strings.TrimRight(appURL, "/"),
		log:       logging.WithComponent("notifications"),
	}
}

// Register subscribes the fan-out handlers to bus
func (s *Service) Register(bus *events.Bus) {
	bus.Subscribe(events.NameArticlePublished, s.onArticlePublished)
	bus.Subscribe(events.NameCommentPublished, s.onCommentPublishedFavoriters)
	bus.Subscribe(events.NameCommentPublished, s.onCommentPublishedAuthor)
	bus.Subscribe(events.NameCommentLiked, s.onCommentLiked)
	bus.Subscribe(events.NameFollowCreated, s.onFollowCreated)
}

func (s *Service) articleURL(slug string) string {
	return fmt.Sprintf("%s/api/articles/%s", s.appURL, slug)
}

func (s *Service) profileURL(username string) string {
	return fmt.Sprintf("%s/api/profiles/%s", s.appURL, username)
}

// onArticlePublished notifies every follower of the author
func (s *Service) onArticlePublished(ctx context.Context, e events.Event) error {
	ev := e.(events.ArticlePublished)

	article, err := s.dir.Article(ctx, ev.ArticleID)
	if err != nil {
		return err
	}
	recipients, err := s.dir.Followers(ctx, ev.AuthorID)
	if err != nil {
		return err
	}

	_, err = s.Notify(ctx, ev.Name(), MsgArticlePublished, recipients, map[string]string{
		"Author": article.Author.Username,
		"Title":  article.Title,
		"URL":    s.articleURL(article.Slug),
	})
	return err
}

func (s *Service) commentData(ctx context.Context, ev events.CommentPublished) (*models.Article, map[string]string, error) {
	article, err := s.dir.Article(ctx, ev.ArticleID)
	if err != nil {
		return nil, nil, err
	}
	comment, err := s.dir.Comment(ctx, ev.CommentID)
	if err != nil {
		return nil, nil, err
	}
	return article, map[string]string{
		"Article":   article.Title,
		"Commenter": comment.Author.Username,
		"Comment":   comment.Body,
		"URL":       s.articleURL(article.Slug),
	}, nil
}

// onCommentPublishedFavoriters notifies the article's favoriters, minus the
// commenter and minus the article's author
func (s *Service) onCommentPublishedFavoriters(ctx context.Context, e events.Event) error {
	ev := e.(events.CommentPublished)

	article, data, err := s.commentData(ctx, ev)
	if err != nil {
		return err
	}
	favoriters, err := s.dir.Favoriters(ctx, article.ID)
	if err != nil {
		return err
	}

	recipients := make([]uuid.UUID, 0, len(favoriters))
	for _, id := range favoriters {
		if id == ev.AuthorID || id == article.AuthorID {
			continue
		}
		recipients = append(recipients, id)
	}

	_, err = s.Notify(ctx, ev.Name(), MsgCommentPublishedFavoriters, recipients, data)
	return err
}

// onCommentPublishedAuthor notifies the article's author
func (s *Service) onCommentPublishedAuthor(ctx context.Context, e events.Event) error {
	ev := e.(events.CommentPublished)

	article, data, err := s.commentData(ctx, ev)
	if err != nil {
		return err
	}
	_, err = s.Notify(ctx, ev.Name(), MsgCommentPublishedAuthor, []uuid.UUID{article.AuthorID}, data)
	return err
}

// onCommentLiked notifies the comment's author
func (s *Service) onCommentLiked(ctx context.Context, e events.Event) error {
	ev := e.(events.CommentLiked)

	comment, err := s.dir.Comment(ctx, ev.CommentID)
	if err != nil {
		return err
	}
	liker, err := s.dir.ProfileOfUser(ctx, ev.UserID)
	if err != nil {
		return err
	}

	_, err = s.Notify(ctx, ev.Name(), MsgCommentLiked, []uuid.UUID{comment.AuthorID}, map[string]string{
		"User":    liker.Username,
		"Comment": comment.Body,
	})
	return err
}

// onFollowCreated notifies the followed profile
func (s *Service) onFollowCreated(ctx context.Context, e events.Event) error {
	ev := e.(events.FollowCreated)

	follower, err := s.dir.Profile(ctx, ev.FollowerID)
	if err != nil {
		return err
	}

	_, err = s.Notify(ctx, ev.Name(), MsgFollowCreated, []uuid.UUID{ev.FollowedID}, map[string]string{
		"Follower": follower.Username,
		"URL":      s.profileURL(follower.Username),
	})
	return err
}

// Notify creates one notification for recipients and starts delivery. An
// empty recipient set creates nothing and returns nil.
func (s *Service) Notify(ctx context.Context, event, key string, recipients []uuid.UUID, data any) (*models.Notification, error) {
	recipients = dedupe(recipients)
	if len(recipients) == 0 {
		return nil, nil
	}

	title, body, err := s.templates.Render(key, data)
	if err != nil {
		return nil, err
	}

	n := models.Notification{Event: event, Title: title, Body: body}
	var profiles []models.Profile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id IN ?", recipients).Find(&profiles).Error; err != nil {
			return fmt.Errorf("failed to load recipients: %w", err)
		}
		if len(profiles) == 0 {
			return nil
		}
		if err := tx.Create(&n).Error; err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
		if err := tx.Model(&n).Association("Recipients").Append(&profiles); err != nil {
			return fmt.Errorf("failed to attach recipients: %w", err)
		}
		for _, p := range profiles {
			if _, err := statusFor(tx, n.ID, p.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}

	metrics.NotificationsCreated.WithLabelValues(event).Inc()
	s.log.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"event":           event,
		"recipients":      len(profiles),
	}).Info("🔔 Notification created")

	for _, p := range profiles {
		s.deliver(ctx, &n, p)
	}
	return &n, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// statusFor gets or creates the (recipient, notification) status row
func statusFor(db *gorm.DB, notificationID, recipientID uuid.UUID) (*models.NotificationStatus, error) {
	var st models.NotificationStatus
	err := db.Where(models.NotificationStatus{NotificationID: notificationID, RecipientID: recipientID}).
		FirstOrCreate(&st).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load notification status: %w", err)
	}
	return &st, nil
}

// deliver enqueues the email when the recipient allows it and it was not sent
// yet, and pushes the notification to live connections when in-app is allowed.
// Failures are logged only.
func (s *Service) deliver(ctx context.Context, n *models.Notification, p models.Profile) {
	log := s.log.WithFields(logrus.Fields{"notification_id": n.ID, "recipient_id": p.ID})

	prefs, err := s.settings.Get(ctx, p.ID)
	if err != nil {
		log.WithError(err).Error("Failed to read notification settings")
		return
	}

	if prefs.AllowInAppNotifications && s.push != nil {
		s.push.Push(p.ID, viewOf(n))
	}

	if !prefs.AllowEmailNotifications || s.mail == nil {
		return
	}
	st, err := statusFor(s.db.WithContext(ctx), n.ID, p.ID)
	if err != nil {
		log.WithError(err).Error("Failed to read notification status")
		return
	}
	if st.EmailWasSent {
		return
	}
	if err := s.enqueue(ctx, n, p.ID); err != nil {
		log.WithError(err).Error("Failed to enqueue notification email")
	}
}

func (s *Service) enqueue(ctx context.Context, n *models.Notification, recipientID uuid.UUID) error {
	var email string
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("profiles.id = ?", recipientID).
		Pluck("users.email", &email).Error
	if err != nil {
		return fmt.Errorf("failed to load recipient email: %w", err)
	}
	if email == "" {
		return fmt.Errorf("recipient %s has no email address", recipientID)
	}

	msg := mailer.Message{
		NotificationID: n.ID,
		RecipientID:    recipientID,
		To:             []string{email},
		Subject:        n.Title,
		Body:           n.Body,
	}
	if err := s.mail.Enqueue(ctx, msg); err != nil {
		metrics.Emails.WithLabelValues("dropped").Inc()
		return err
	}
	metrics.Emails.WithLabelValues("enqueued").Inc()
	return nil
}

// EmailSent reports whether the status already records a successful send
func (s *Service) EmailSent(ctx context.Context, notificationID, recipientID uuid.UUID) (bool, error) {
	var st models.NotificationStatus
	err := s.db.WithContext(ctx).
		Where("notification_id = ? AND recipient_id = ?", notificationID, recipientID).
		First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load notification status: %w", err)
	}
	return st.EmailWasSent, nil
}

// MarkEmailSent records a successful send. Called by the mail dispatcher
// after the transport accepted the message.
func (s *Service) MarkEmailSent(ctx context.Context, notificationID, recipientID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := statusFor(tx, notificationID, recipientID)
		if err != nil {
			return err
		}
		if st.EmailWasSent {
			return nil
		}
		if err := tx.Model(st).Update("email_was_sent", true).Error; err != nil {
			return fmt.Errorf("failed to mark email sent: %w", err)
		}
		return nil
	})
}

// ProfileID resolves the profile of an authenticated user
func (s *Service) ProfileID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	if userID == uuid.Nil {
		return uuid.Nil, services.Unauthorized("authentication required")
	}
	p, err := s.dir.ProfileOfUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, services.NotFound("profile not found")
		}
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (s *Service) unreadQuery(db *gorm.DB, profileID uuid.UUID) *gorm.DB {
	return db.Model(&models.Notification{}).
		Joins("JOIN notification_recipients nr ON nr.notification_id = notifications.id AND nr.profile_id = ?", profileID).
		Joins("LEFT JOIN notification_statuses ns ON ns.notification_id = notifications.id AND ns.recipient_id = ?", profileID).
		Where("ns.id IS NULL OR ns.was_read_in_app = ?", false)
}

// Unread returns the user's unread notifications newest first. It is empty
// when the user has disabled in-app notifications.
func (s *Service) Unread(ctx context.Context, userID uuid.UUID) ([]View, error) {
	profileID, err := s.ProfileID(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0)
	prefs, err := s.settings.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !prefs.AllowInAppNotifications {
		return views, nil
	}

	var rows []models.Notification
	err = s.unreadQuery(s.db.WithContext(ctx), profileID).
		Order("notifications.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load unread notifications: %w", err)
	}
	for i := range rows {
		views = append(views, viewOf(&rows[i]))
	}
	return views, nil
}

// MarkAllRead marks every unread notification of the user as read in-app
// and returns how many changed
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	profileID, err := s.ProfileID(ctx, userID)
	if err != nil {
		return 0, err
	}

	var marked int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := s.unreadQuery(tx, profileID).Pluck("notifications.id", &ids).Error; err != nil {
			return fmt.Errorf("failed to load unread notifications: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		for _, id := range ids {
			if _, err := statusFor(tx, id, profileID); err != nil {
				return err
			}
		}
		res := tx.Model(&models.NotificationStatus{}).
			Where("recipient_id = ? AND notification_id IN ?", profileID, ids).
			Update("was_read_in_app", true)
		if res.Error != nil {
			return fmt.Errorf("failed to mark notifications read: %w", res.Error)
		}
		marked = int(res.RowsAffected)
		return nil
	})
	return marked, err
}

// Settings returns the user's notification settings
func (s *Service) Settings(ctx context.Context, userID uuid.UUID) (models.NotificationSettings, error) {
	profileID, err := s.ProfileID(ctx, userID)
	if err != nil {
		return models.NotificationSettings{}, err
	}
	return s.settings.Get(ctx, profileID)
}

// RetryUnsent re-enqueues notification emails still unsent after grace for
// recipients that allow email. The dispatcher skips statuses already marked
// sent, so a status is delivered at most once even if it is enqueued twice.
func (s *Service) RetryUnsent(ctx context.Context, grace time.Duration, limit int) (int, error) {
	if s.mail == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = 100
	}

	var statuses []models.NotificationStatus
	err := s.db.WithContext(ctx).
		Joins("JOIN notification_settings ON notification_settings.profile_id = notification_statuses.recipient_id").
		Where("notification_statuses.email_was_sent = ? AND notification_settings.allow_email_notifications = ?", false, true).
		Where("notification_statuses.created_at < ?", time.Now().Add(-grace)).
		Preload("Notification").
		Order("notification_statuses.created_at").
		Limit(limit).
		Find(&statuses).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load unsent notification emails: %w", err)
	}

	retried := 0
	for i := range statuses {
		st := &statuses[i]
		if err := s.enqueue(ctx, &st.Notification, st.RecipientID); err != nil {
			if errors.Is(err, mailer.ErrQueueFull) || errors.Is(err, mailer.ErrQueueClosed) {
				break
			}
			s.log.WithError(err).WithField("notification_id", st.NotificationID).Warn("Failed to re-enqueue notification email")
			continue
		}
		retried++
	}
	if retried > 0 {
		metrics.Emails.WithLabelValues("retried").Add(float64(retried))
	}
	return retried, nil
}
