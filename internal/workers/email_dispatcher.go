// Package workers holds the background consumers of the mail pipeline.
package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"authors-haven/internal/logging"
	"authors-haven/internal/mailer"
	"authors-haven/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sendTimeout = 30 * time.Second

// StatusLedger records notification email delivery
type StatusLedger interface {
	EmailSent(ctx context.Context, notificationID, recipientID uuid.UUID) (bool, error)
	MarkEmailSent(ctx context.Context, notificationID, recipientID uuid.UUID) error
}

// EmailDispatcher drains the mail queue with a fixed number of goroutines
type EmailDispatcher struct {
	queue   mailer.Queue
	sender  mailer.Sender
	ledger  StatusLedger
	workers int
	log     *logrus.Entry

	sent    atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
}

// NewEmailDispatcher creates a dispatcher. ledger may be nil when no
// notification emails flow through the queue.
func NewEmailDispatcher(queue mailer.Queue, sender mailer.Sender, ledger StatusLedger, workers int) *EmailDispatcher {
	if workers < 1 {
		workers = 1
	}
	return &EmailDispatcher{
		queue:   queue,
		sender:  sender,
		ledger:  ledger,
		workers: workers,
		log:     logging.WithComponent("email-dispatcher"),
	}
}

// Run blocks until ctx is done or the queue is closed and drained
func (d *EmailDispatcher) Run(ctx context.Context) {
	d.log.WithField("workers", d.workers).Info("📬 Starting email dispatcher")

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	d.log.WithFields(logrus.Fields{
		"sent":    d.sent.Load(),
		"failed":  d.failed.Load(),
		"skipped": d.skipped.Load(),
	}).Info("🛑 Email dispatcher stopped")
}

func (d *EmailDispatcher) loop(ctx context.Context, id int) {
	for {
		msg, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, mailer.ErrQueueClosed) {
				return
			}
			d.log.WithError(err).WithField("worker", id).Error("❌ Failed to dequeue email")
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}
		d.process(ctx, msg)
	}
}

// process sends one message. A notification email already marked sent is
// skipped; the status is marked only after the sender accepted the message.
func (d *EmailDispatcher) process(ctx context.Context, msg mailer.Message) {
	log := d.log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject})
	tracked := msg.IsNotification() && d.ledger != nil

	if tracked {
		log = log.WithFields(logrus.Fields{
			"notification_id": msg.NotificationID,
			"recipient_id":    msg.RecipientID,
		})
		sent, err := d.ledger.EmailSent(ctx, msg.NotificationID, msg.RecipientID)
		if err != nil {
			log.WithError(err).Warn("Could not check notification status, sending anyway")
		} else if sent {
			d.skipped.Add(1)
			metrics.Emails.WithLabelValues("skipped").Inc()
			log.Debug("Notification email already sent")
			return
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := d.sender.Send(sendCtx, msg); err != nil {
		d.failed.Add(1)
		metrics.Emails.WithLabelValues("failed").Inc()
		log.WithError(err).Error("❌ Failed to send email")
		return
	}

	d.sent.Add(1)
	metrics.Emails.WithLabelValues("sent").Inc()
	log.Info("✅ Email sent")

	if tracked {
		if err := d.ledger.MarkEmailSent(ctx, msg.NotificationID, msg.RecipientID); err != nil {
			log.WithError(err).Error("❌ Email sent but status not recorded")
		}
	}
}

// GetStats returns counters since the dispatcher was created
func (d *EmailDispatcher) GetStats() DispatcherStats {
	return DispatcherStats{
		Workers: d.workers,
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Skipped: d.skipped.Load(),
	}
}

// DispatcherStats holds email dispatcher counters
type DispatcherStats struct {
	Workers int   `json:"workers"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Skipped int64 `json:"skipped"`
}
