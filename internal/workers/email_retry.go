package workers

import (
	"context"
	"sync"
	"time"

	"authors-haven/internal/logging"

	"github.com/sirupsen/logrus"
)

const retryBatchSize = 100

// Retrier re-enqueues notification emails that were never marked sent
type Retrier interface {
	RetryUnsent(ctx context.Context, grace time.Duration, limit int) (int, error)
}

// EmailRetrySweeper is the opt-in job that gives stuck notification emails another try
type EmailRetrySweeper struct {
	retrier Retrier
	grace   time.Duration
	log     *logrus.Entry

	mu        sync.Mutex
	lastRun   time.Time
	lastCount int
}

// NewEmailRetrySweeper creates a sweeper that only touches statuses older than grace
func NewEmailRetrySweeper(retrier Retrier, grace time.Duration) *EmailRetrySweeper {
	return &EmailRetrySweeper{
		retrier: retrier,
		grace:   grace,
		log:     logging.WithComponent("email-retry"),
	}
}

// Sweep runs one pass and returns how many emails were re-enqueued
func (s *EmailRetrySweeper) Sweep(ctx context.Context) int {
	n, err := s.retrier.RetryUnsent(ctx, s.grace, retryBatchSize)
	if err != nil {
		s.log.WithError(err).Error("❌ Email retry sweep failed")
	} else if n > 0 {
		s.log.WithField("retried", n).Info("🔁 Re-enqueued unsent notification emails")
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastCount = n
	s.mu.Unlock()
	return n
}

// GetStats reports the last sweep
func (s *EmailRetrySweeper) GetStats() RetryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RetryStats{Grace: s.grace, LastRun: s.lastRun, LastRetried: s.lastCount}
}

// RetryStats holds statistics about the retry sweeper
type RetryStats struct {
	Grace       time.Duration `json:"grace"`
	LastRun     time.Time     `json:"last_run"`
	LastRetried int           `json:"last_retried"`
}
