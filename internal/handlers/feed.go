package handlers

import (
	"net/http"

	"authors-haven/internal/auth"
	"authors-haven/internal/database"
	"authors-haven/internal/feeds"
	"authors-haven/internal/worker"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FeedHandler handles HTTP requests for feeds
type FeedHandler struct {
	db            *gorm.DB
	feedService   *feeds.FeedService
	workerService *worker.WorkerService
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(db *gorm.DB, feedService *feeds.FeedService, workerService *worker.WorkerService) *FeedHandler {
	return &FeedHandler{
		db:            db,
		feedService:   feedService,
		workerService: workerService,
	}
}

// GetGlobalFeed handles GET /api/feeds/global
func (h *FeedHandler) GetGlobalFeed(c *gin.Context) {
	limit, _, offset := pagination(c)

	feedResponse, err := h.feedService.GetGlobalFeed(c.Request.Context(), auth.UserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedResponse)
}

// GetPersonalizedFeed handles GET /api/articles/feed
func (h *FeedHandler) GetPersonalizedFeed(c *gin.Context) {
	limit, _, offset := pagination(c)

	feedResponse, err := h.feedService.GetPersonalizedFeed(c.Request.Context(), auth.UserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedResponse)
}

// HealthCheck handles GET /health
func (h *FeedHandler) HealthCheck(c *gin.Context) {
	status := gin.H{
		"status":  "healthy",
		"service": "authors-haven",
	}

	sqlDB, err := h.db.DB()
	if err == nil {
		err = database.Ping(c.Request.Context(), sqlDB)
	}
	if err != nil {
		status["status"] = "unhealthy"
		status["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}

	c.JSON(http.StatusOK, status)
}

// WorkerStatus handles GET /admin/worker
func (h *FeedHandler) WorkerStatus(c *gin.Context) {
	if h.workerService == nil {
		c.JSON(http.StatusOK, gin.H{"worker_status": gin.H{"running": false}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"worker_status": h.workerService.GetStatus(),
	})
}
