// Package mailer carries outgoing email from the request path to the delivery workers.
package mailer

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrQueueClosed = errors.New("mail queue closed")
	ErrQueueFull   = errors.New("mail queue full")
)

// Message is one email waiting for delivery. Notification emails carry the
// (notification, recipient) pair so the worker can mark the status sent.
type Message struct {
	NotificationID uuid.UUID `json:"notification_id,omitempty"`
	RecipientID    uuid.UUID `json:"recipient_id,omitempty"`
	To             []string  `json:"to"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
}

// IsNotification reports whether the message belongs to a notification status
func (m Message) IsNotification() bool {
	return m.NotificationID != uuid.Nil && m.RecipientID != uuid.Nil
}

// Queue buffers messages between producers and the dispatcher
type Queue interface {
	// Enqueue returns without waiting for delivery
	Enqueue(ctx context.Context, msg Message) error
	// Dequeue blocks until a message is available, ctx is done or the queue is closed
	Dequeue(ctx context.Context) (Message, error)
	Close() error
}

// Sender delivers one message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
