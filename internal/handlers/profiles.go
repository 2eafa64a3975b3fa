package handlers

import (
	"net/http"

	"authors-haven/internal/auth"
	"authors-haven/internal/services"

	"github.com/gin-gonic/gin"
)

// ProfileHandler serves profiles, follows and read statistics
type ProfileHandler struct {
	profiles *services.ProfileService
	follows  *services.FollowService
	articles *services.ArticleService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *services.ProfileService, follows *services.FollowService, articles *services.ArticleService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, follows: follows, articles: articles}
}

// List handles GET /api/profiles
func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.profiles.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// Get handles GET /api/profiles/:username
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.profiles.GetByUsername(c.Request.Context(), auth.UserID(c), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Update handles PATCH /api/profiles/:username
func (h *ProfileHandler) Update(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), auth.UserID(c), c.Param("username"), fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Follow handles POST /api/profiles/:username/follow
func (h *ProfileHandler) Follow(c *gin.Context) {
	profile, err := h.follows.Follow(c.Request.Context(), auth.UserID(c), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Unfollow handles DELETE /api/profiles/:username/follow
func (h *ProfileHandler) Unfollow(c *gin.Context) {
	profile, err := h.follows.Unfollow(c.Request.Context(), auth.UserID(c), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Followers handles GET /api/profiles/me/followers
func (h *ProfileHandler) Followers(c *gin.Context) {
	names, err := h.follows.Followers(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	body := gin.H{"followers": names, "count": len(names)}
	if len(names) == 0 {
		body["message"] = "You have no followers."
	}
	c.JSON(http.StatusOK, body)
}

// Following handles GET /api/profiles/me/following
func (h *ProfileHandler) Following(c *gin.Context) {
	names, err := h.follows.Following(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	body := gin.H{"following": names, "count": len(names)}
	if len(names) == 0 {
		body["message"] = "You are not following anyone."
	}
	c.JSON(http.StatusOK, body)
}

// ReadStats handles GET /api/profiles/me/read-stats
func (h *ProfileHandler) ReadStats(c *gin.Context) {
	stats, err := h.articles.ReadStats(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
