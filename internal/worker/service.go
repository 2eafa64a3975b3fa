package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"authors-haven/internal/logging"
	"authors-haven/internal/workers"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// WorkerService manages background workers for the application
type WorkerService struct {
	dispatcher    *workers.EmailDispatcher
	sweeper       *workers.EmailRetrySweeper
	retrySchedule string
	scheduler     *cron.Cron
	log           *logrus.Entry
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	running       bool
	startedAt     time.Time
	mu            sync.RWMutex
}

// NewWorkerService creates a new worker service. The retry sweeper is only
// scheduled when both sweeper and retrySchedule are set.
func NewWorkerService(dispatcher *workers.EmailDispatcher, sweeper *workers.EmailRetrySweeper, retrySchedule string) *WorkerService {
	return &WorkerService{
		dispatcher:    dispatcher,
		sweeper:       sweeper,
		retrySchedule: retrySchedule,
		log:           logging.WithComponent("worker"),
	}
}

// Start starts all background workers
func (ws *WorkerService) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil // Already running
	}

	ws.log.Info("Starting background workers...")
	ws.ctx, ws.cancel = context.WithCancel(context.Background())

	if ws.sweeper != nil && ws.retrySchedule != "" {
		ws.scheduler = cron.New()
		_, err := ws.scheduler.AddFunc(ws.retrySchedule, func() {
			ws.sweeper.Sweep(ws.ctx)
		})
		if err != nil {
			ws.cancel()
			return fmt.Errorf("invalid email retry schedule %q: %w", ws.retrySchedule, err)
		}
		ws.scheduler.Start()
		ws.log.WithField("schedule", ws.retrySchedule).Info("🔁 Email retry sweeper scheduled")
	}

	if ws.dispatcher != nil {
		ws.wg.Add(1)
		go func() {
			defer ws.wg.Done()
			ws.dispatcher.Run(ws.ctx)
		}()
	}

	ws.running = true
	ws.startedAt = time.Now()
	ws.log.Info("Background workers started successfully")
	return nil
}

// Stop stops all background workers and waits for them to finish
func (ws *WorkerService) Stop() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.running {
		return // Not running
	}

	ws.log.Info("Stopping background workers...")

	if ws.scheduler != nil {
		<-ws.scheduler.Stop().Done()
		ws.scheduler = nil
	}

	// Cancel context to signal all workers to stop
	ws.cancel()
	ws.wg.Wait()

	ws.running = false
	ws.log.Info("Background workers stopped")
}

// IsRunning returns whether the worker service is currently running
func (ws *WorkerService) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

// GetStatus returns the current status of the worker service
func (ws *WorkerService) GetStatus() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	status := map[string]interface{}{
		"running":        ws.running,
		"retry_schedule": ws.retrySchedule,
	}
	if ws.running {
		status["uptime"] = time.Since(ws.startedAt).Round(time.Second).String()
	}
	if ws.dispatcher != nil {
		status["email_dispatcher"] = ws.dispatcher.GetStats()
	}
	if ws.sweeper != nil {
		status["email_retry"] = ws.sweeper.GetStats()
	}
	if ws.scheduler != nil {
		if entries := ws.scheduler.Entries(); len(entries) > 0 {
			status["next_retry"] = entries[0].Next
		}
	}
	return status
}
