// Package events is an explicit in-process domain event bus.
//
// Publishers call Publish after their write has committed. Handlers run
// synchronously in the publishing goroutine in subscription order; a handler
// error is logged and never reaches the publisher or the other handlers.
package events

import (
	"context"
	"sync"

	"authors-haven/internal/logging"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event names
const (
	NameArticlePublished = "article-published"
	NameCommentPublished = "comment-published"
	NameCommentLiked     = "comment-liked"
	NameFollowCreated    = "follow-created"
)

// Event is anything published on the bus
type Event interface {
	Name() string
}

// ArticlePublished is raised when a new article is created
type ArticlePublished struct {
	ArticleID uuid.UUID
	AuthorID  uuid.UUID // profile
}

func (ArticlePublished) Name() string { return NameArticlePublished }

// CommentPublished is raised when a new comment is created
type CommentPublished struct {
	CommentID uuid.UUID
	ArticleID uuid.UUID
	AuthorID  uuid.UUID // profile of the commenter
}

func (CommentPublished) Name() string { return NameCommentPublished }

// CommentLiked is raised when a like is added to a comment, including a switch from dislike
type CommentLiked struct {
	CommentID uuid.UUID
	UserID    uuid.UUID // user who liked
}

func (CommentLiked) Name() string { return NameCommentLiked }

// FollowCreated is raised when a new follow edge is added. Unfollowing raises nothing.
type FollowCreated struct {
	FollowerID uuid.UUID // profile
	FollowedID uuid.UUID // profile
}

func (FollowCreated) Name() string { return NameFollowCreated }

// Handler reacts to one event
type Handler func(ctx context.Context, e Event) error

// Bus dispatches events to subscribed handlers
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers h for events with the given name
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish runs every handler subscribed to e. A nil bus drops the event.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Name()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			logging.WithComponent("events").WithFields(logrus.Fields{
				"event": e.Name(),
				"error": err,
			}).Error("Event handler failed")
		}
	}
}
