package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authors-haven/internal/auth"
	"authors-haven/internal/config"
	"authors-haven/internal/database"
	"authors-haven/internal/events"
	"authors-haven/internal/feeds"
	"authors-haven/internal/handlers"
	"authors-haven/internal/logging"
	"authors-haven/internal/mailer"
	"authors-haven/internal/middleware"
	"authors-haven/internal/notifications"
	"authors-haven/internal/services"
	"authors-haven/internal/worker"
	"authors-haven/internal/workers"

	"github.com/gin-gonic/gin"
)

func main() {
	loadedEnv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		logging.Log.WithError(err).Fatal("Failed to load configuration")
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	log := logging.WithComponent("main")
	if !loadedEnv {
		log.Info("No .env file found, using environment variables")
	}

	// Load database configuration
	dbConfig, err := database.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load database configuration")
	}

	// Connect to database
	if err := database.Connect(dbConfig); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	queue := newMailQueue(cfg)
	sender := newMailSender(cfg)

	// Domain services
	db := database.DB
	bus := events.NewBus()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	articles := services.NewArticleService(db, bus)

	templates, err := notifications.DefaultTemplates()
	if err != nil {
		log.WithError(err).Fatal("Failed to load notification templates")
	}
	hub := notifications.NewHub()
	settings := notifications.NewSettingsStore(db)
	notes := notifications.NewService(db, notifications.NewGormDirectory(db), settings, queue, hub, templates, cfg.AppURL)
	notes.Register(bus)

	// Initialize and start background workers
	dispatcher := workers.NewEmailDispatcher(queue, sender, notes, cfg.Mail.Workers)
	sweeper := workers.NewEmailRetrySweeper(notes, cfg.EmailRetryAfter)
	workerService := worker.NewWorkerService(dispatcher, sweeper, cfg.EmailRetrySchedule)
	if err := workerService.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start background workers")
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	router := handlers.NewRouter(handlers.Deps{
		DB:            db,
		Tokens:        tokens,
		Users:         services.NewUserService(db, tokens, queue, cfg.AppURL),
		Profiles:      services.NewProfileService(db),
		Follows:       services.NewFollowService(db, bus),
		Articles:      articles,
		Interactions:  services.NewInteractionService(db, bus, queue, cfg.AdminEmail),
		Comments:      services.NewCommentService(db, bus),
		Feeds:         feeds.NewFeedService(db, articles),
		Notifications: notes,
		Settings:      settings,
		Hub:           hub,
		Worker:        workerService,
		Limiter:       limiter,
		AdminPassword: cfg.AdminPassword,
		DocsRoot:      ".",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweepRateLimiters(ctx, limiter)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("🚀 Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Received shutdown signal, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	// Stop background workers
	workerService.Stop()
	if err := queue.Close(); err != nil {
		log.WithError(err).Warn("Failed to close mail queue")
	}

	log.Info("Shutdown complete")
}

// newMailQueue picks the configured backend, falling back to memory when redis is unreachable
func newMailQueue(cfg *config.Config) mailer.Queue {
	log := logging.WithComponent("main")
	if cfg.Queue.Backend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q, err := mailer.NewRedisQueue(ctx, cfg.Queue.RedisAddr, cfg.Queue.RedisPassword, cfg.Queue.RedisDB, cfg.Queue.RedisKey)
		if err == nil {
			log.WithField("addr", cfg.Queue.RedisAddr).Info("📮 Using redis mail queue")
			return q
		}
		log.WithError(err).Warn("⚠️ Redis unavailable, falling back to in-memory mail queue")
	}
	return mailer.NewMemoryQueue(cfg.Mail.QueueSize)
}

func newMailSender(cfg *config.Config) mailer.Sender {
	if cfg.Mail.Backend == "smtp" {
		return mailer.NewSMTPSender(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	}
	return mailer.NewLogSender()
}

func sweepRateLimiters(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Cleanup(10 * time.Minute); n > 0 {
				logging.WithComponent("ratelimit").WithField("removed", n).Debug("Pruned idle rate limiters")
			}
		}
	}
}
