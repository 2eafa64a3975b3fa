package handlers

import (
	"net/http"

	"authors-haven/internal/auth"
	"authors-haven/internal/models"
	"authors-haven/internal/services"

	"github.com/gin-gonic/gin"
)

// CommentHandler serves comments, replies, their reactions and edit history
type CommentHandler struct {
	comments     *services.CommentService
	interactions *services.InteractionService
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(comments *services.CommentService, interactions *services.InteractionService) *CommentHandler {
	return &CommentHandler{comments: comments, interactions: interactions}
}

type replyRequest struct {
	Body string `json:"body"`
}

type replyUpdateRequest struct {
	Body *string `json:"body"`
}

// List handles GET /api/articles/:slug/comments
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.comments.List(c.Request.Context(), auth.UserID(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "commentsCount": len(comments)})
}

// Create handles POST /api/articles/:slug/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var in services.CommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), auth.UserID(c), c.Param("slug"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// Get handles GET /api/comments/:id
func (h *CommentHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	comment, err := h.comments.Get(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// Update handles PATCH /api/comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var in services.CommentUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	comment, err := h.comments.Update(c.Request.Context(), auth.UserID(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// Delete handles DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), auth.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// History handles GET /api/comments/:id/history
func (h *CommentHandler) History(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	history, err := h.comments.CommentHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *CommentHandler) reactionTarget(c *gin.Context) (*models.Comment, models.ReactionKind, bool) {
	kind, err := models.ParseReactionKind(c.Param("reaction"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return nil, "", false
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return nil, "", false
	}
	comment, err := h.interactions.Comment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, "", false
	}
	return comment, kind, true
}

// React handles POST /api/comments/:id/:reaction
func (h *CommentHandler) React(c *gin.Context) {
	comment, kind, ok := h.reactionTarget(c)
	if !ok {
		return
	}
	result, err := h.interactions.React(c.Request.Context(), auth.UserID(c), comment, kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Unreact handles DELETE /api/comments/:id/:reaction
func (h *CommentHandler) Unreact(c *gin.Context) {
	comment, kind, ok := h.reactionTarget(c)
	if !ok {
		return
	}
	result, err := h.interactions.Unreact(c.Request.Context(), auth.UserID(c), comment, kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Replies handles GET /api/comments/:id/replies
func (h *CommentHandler) Replies(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	replies, err := h.comments.ListReplies(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies, "repliesCount": len(replies)})
}

// CreateReply handles POST /api/comments/:id/replies
func (h *CommentHandler) CreateReply(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var in replyRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	reply, err := h.comments.CreateReply(c.Request.Context(), auth.UserID(c), id, in.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reply": reply})
}

// GetReply handles GET /api/replies/:id
func (h *CommentHandler) GetReply(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	reply, err := h.comments.GetReply(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// UpdateReply handles PATCH /api/replies/:id
func (h *CommentHandler) UpdateReply(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var in replyUpdateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	reply, err := h.comments.UpdateReply(c.Request.Context(), auth.UserID(c), id, in.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// DeleteReply handles DELETE /api/replies/:id
func (h *CommentHandler) DeleteReply(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.DeleteReply(c.Request.Context(), auth.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reply deleted"})
}

// ReplyHistory handles GET /api/replies/:id/history
func (h *CommentHandler) ReplyHistory(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	history, err := h.comments.ReplyHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
