package handlers

import (
	"net/http"

	"authors-haven/internal/auth"
	"authors-haven/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHandler serves registration, activation, login, the current account and password resets
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/users
func (h *UserHandler) Register(c *gin.Context) {
	var in services.Registration
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	user, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Check your email to activate your account.",
		"user": gin.H{
			"email":    user.Email,
			"username": user.Username,
		},
	})
}

// Activate handles GET /api/users/activate/:token
func (h *UserHandler) Activate(c *gin.Context) {
	user, err := h.users.Activate(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Your account has been activated",
		"email":   user.Email,
	})
}

// Login handles POST /api/users/login
func (h *UserHandler) Login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	result, err := h.users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"email": result.User.Email,
			"token": result.Token,
		},
	})
}

// Current handles GET /api/user
func (h *UserHandler) Current(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateCurrent handles PATCH /api/user
func (h *UserHandler) UpdateCurrent(c *gin.Context) {
	var in services.UserUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	user, err := h.users.Update(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RequestPasswordReset handles POST /api/users/password-reset
func (h *UserHandler) RequestPasswordReset(c *gin.Context) {
	var in struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	if err := h.users.RequestPasswordReset(c.Request.Context(), in.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "A password reset link has been sent to your email."})
}

// CheckResetToken handles GET /api/users/password-reset/:token
func (h *UserHandler) CheckResetToken(c *gin.Context) {
	user, err := h.users.CheckResetToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reset link is valid", "email": user.Email})
}

// ResetPassword handles PUT /api/users/password-reset/:token
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var in struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), c.Param("token"), in.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your password has been reset. You can now log in."})
}
