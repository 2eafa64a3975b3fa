package handlers

import (
	"net/http"

	"authors-haven/internal/auth"
	"authors-haven/internal/logging"
	"authors-haven/internal/notifications"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// NotificationHandler serves the in-app inbox, settings and the live socket
type NotificationHandler struct {
	notifications *notifications.Service
	settings      *notifications.SettingsStore
	hub           *notifications.Hub
	upgrader      websocket.Upgrader
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc *notifications.Service, settings *notifications.SettingsStore, hub *notifications.Hub) *NotificationHandler {
	return &NotificationHandler{
		notifications: svc,
		settings:      settings,
		hub:           hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	views, err := h.notifications.Unread(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": views, "count": len(views)})
}

// MarkAllRead handles POST /api/notifications
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "marked": n})
}

// GetSettings handles GET /api/notifications/settings
func (h *NotificationHandler) GetSettings(c *gin.Context) {
	settings, err := h.notifications.Settings(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettings handles PATCH /api/notifications/settings
func (h *NotificationHandler) UpdateSettings(c *gin.Context) {
	var in notifications.SettingsUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	profileID, err := h.notifications.ProfileID(ctx, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	settings, err := h.settings.Update(ctx, profileID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// Live handles GET /api/notifications/ws
func (h *NotificationHandler) Live(c *gin.Context) {
	ctx := c.Request.Context()
	profileID, err := h.notifications.ProfileID(ctx, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.WithComponent("http").WithError(err).Warn("⚠️ Websocket upgrade failed")
		return
	}
	h.hub.Serve(ctx, profileID, conn)
}
