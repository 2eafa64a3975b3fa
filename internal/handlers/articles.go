package handlers

import (
	"net/http"

	"authors-haven/internal/auth"
	"authors-haven/internal/models"
	"authors-haven/internal/services"

	"github.com/gin-gonic/gin"
)

// ArticleHandler serves articles and the interactions attached to them
type ArticleHandler struct {
	articles     *services.ArticleService
	interactions *services.InteractionService
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(articles *services.ArticleService, interactions *services.InteractionService) *ArticleHandler {
	return &ArticleHandler{articles: articles, interactions: interactions}
}

// List handles GET /api/articles
func (h *ArticleHandler) List(c *gin.Context) {
	limit, page, offset := pagination(c)

	views, total, err := h.articles.List(c.Request.Context(), auth.UserID(c), services.ArticleFilter{
		Title:       c.Query("title"),
		Author:      c.Query("author"),
		Tag:         c.Query("tag"),
		FavoritedBy: c.Query("favorited"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles":      views,
		"articlesCount": total,
		"page":          page,
		"per_page":      limit,
	})
}

// Create handles POST /api/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var in services.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	article, err := h.articles.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"article": article})
}

// Get handles GET /api/articles/:slug
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.articles.Get(c.Request.Context(), auth.UserID(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": article})
}

// Update handles PATCH /api/articles/:slug
func (h *ArticleHandler) Update(c *gin.Context) {
	var in services.ArticleUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	article, err := h.articles.Update(c.Request.Context(), auth.UserID(c), c.Param("slug"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": article})
}

// Delete handles DELETE /api/articles/:slug
func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.articles.Delete(c.Request.Context(), auth.UserID(c), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Article deleted"})
}

// Tags handles GET /api/tags
func (h *ArticleHandler) Tags(c *gin.Context) {
	tags, err := h.articles.Tags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// reactionTarget resolves the :reaction segment and the article it applies to
func (h *ArticleHandler) reactionTarget(c *gin.Context) (*models.Article, models.ReactionKind, bool) {
	kind, err := models.ParseReactionKind(c.Param("reaction"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return nil, "", false
	}
	article, err := h.interactions.Article(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return nil, "", false
	}
	return article, kind, true
}

// React handles POST /api/articles/:slug/:reaction
func (h *ArticleHandler) React(c *gin.Context) {
	article, kind, ok := h.reactionTarget(c)
	if !ok {
		return
	}
	result, err := h.interactions.React(c.Request.Context(), auth.UserID(c), article, kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Unreact handles DELETE /api/articles/:slug/:reaction
func (h *ArticleHandler) Unreact(c *gin.Context) {
	article, kind, ok := h.reactionTarget(c)
	if !ok {
		return
	}
	result, err := h.interactions.Unreact(c.Request.Context(), auth.UserID(c), article, kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReactionStatus handles GET /api/articles/:slug/:reaction/status
func (h *ArticleHandler) ReactionStatus(c *gin.Context) {
	article, kind, ok := h.reactionTarget(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"slug":    article.Slug,
		"kind":    kind,
		"reacted": h.interactions.IsReacted(ctx, auth.UserID(c), article, kind),
	})
}

// Favorite handles POST /api/articles/:slug/favorite
func (h *ArticleHandler) Favorite(c *gin.Context) {
	result, err := h.interactions.Favorite(c.Request.Context(), auth.UserID(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Unfavorite handles DELETE /api/articles/:slug/favorite
func (h *ArticleHandler) Unfavorite(c *gin.Context) {
	result, err := h.interactions.Unfavorite(c.Request.Context(), auth.UserID(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rateRequest struct {
	Score *int `json:"rate_score"`
}

// Rate handles POST /api/articles/:slug/rate
func (h *ArticleHandler) Rate(c *gin.Context) {
	var in rateRequest
	if err := c.ShouldBindJSON(&in); err != nil || in.Score == nil {
		respondError(c, services.Validation("rate_score", "required", "rate_score is required"))
		return
	}

	result, err := h.interactions.Rate(c.Request.Context(), auth.UserID(c), c.Param("slug"), *in.Score)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// AddBookmark handles POST /api/articles/:slug/bookmark
func (h *ArticleHandler) AddBookmark(c *gin.Context) {
	bookmark, err := h.interactions.AddBookmark(c.Request.Context(), auth.UserID(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bookmark": bookmark})
}

// RemoveBookmark handles DELETE /api/articles/:slug/bookmark
func (h *ArticleHandler) RemoveBookmark(c *gin.Context) {
	if err := h.interactions.RemoveBookmark(c.Request.Context(), auth.UserID(c), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bookmark removed"})
}

// Bookmarks handles GET /api/bookmarks
func (h *ArticleHandler) Bookmarks(c *gin.Context) {
	bookmarks, err := h.interactions.Bookmarks(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks, "count": len(bookmarks)})
}

type reportRequest struct {
	Reason string `json:"reason"`
}

// Report handles POST /api/articles/:slug/report
func (h *ArticleHandler) Report(c *gin.Context) {
	var in reportRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	report, err := h.interactions.Report(c.Request.Context(), auth.UserID(c), c.Param("slug"), in.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// Reports handles GET /api/reports
func (h *ArticleHandler) Reports(c *gin.Context) {
	reports, err := h.interactions.Reports(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// GetReport handles GET /api/reports/:id
func (h *ArticleHandler) GetReport(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	report, err := h.interactions.GetReport(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}
