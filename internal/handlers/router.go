package handlers

import (
	"authors-haven/internal/auth"
	"authors-haven/internal/feeds"
	"authors-haven/internal/logging"
	"authors-haven/internal/metrics"
	"authors-haven/internal/middleware"
	"authors-haven/internal/notifications"
	"authors-haven/internal/services"
	"authors-haven/internal/worker"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the services the HTTP surface is built from
type Deps struct {
	DB            *gorm.DB
	Tokens        *auth.TokenManager
	Users         *services.UserService
	Profiles      *services.ProfileService
	Follows       *services.FollowService
	Articles      *services.ArticleService
	Interactions  *services.InteractionService
	Comments      *services.CommentService
	Feeds         *feeds.FeedService
	Notifications *notifications.Service
	Settings      *notifications.SettingsStore
	Hub           *notifications.Hub
	Worker        *worker.WorkerService
	Limiter       *middleware.RateLimiter // nil disables rate limiting
	AdminPassword string
	DocsRoot      string
}

// NewRouter wires every route onto a fresh gin engine
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(), metrics.Middleware(), cors())

	feedHandler := NewFeedHandler(d.DB, d.Feeds, d.Worker)
	userHandler := NewUserHandler(d.Users)
	profileHandler := NewProfileHandler(d.Profiles, d.Follows, d.Articles)
	articleHandler := NewArticleHandler(d.Articles, d.Interactions)
	commentHandler := NewCommentHandler(d.Comments, d.Interactions)
	notificationHandler := NewNotificationHandler(d.Notifications, d.Settings, d.Hub)
	adminHandler := NewAdminHandler(d.DB, d.Interactions, d.AdminPassword)
	docsHandler := NewDocsHandler(d.DocsRoot)

	required := auth.RequireAuth(d.Tokens)
	optional := auth.OptionalAuth(d.Tokens)

	r.GET("/health", feedHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/doc/:doc", docsHandler.ServeMarkdownAsHTML)

	api := r.Group("/api")
	if d.Limiter != nil {
		api.Use(d.Limiter.Handler())
	}
	{
		users := api.Group("/users")
		{
			users.POST("", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.GET("/activate/:token", userHandler.Activate)
			users.POST("/password-reset", userHandler.RequestPasswordReset)
			users.GET("/password-reset/:token", userHandler.CheckResetToken)
			users.PUT("/password-reset/:token", userHandler.ResetPassword)
		}

		api.GET("/user", required, userHandler.Current)
		api.PATCH("/user", required, userHandler.UpdateCurrent)

		profiles := api.Group("/profiles")
		{
			profiles.GET("", optional, profileHandler.List)
			profiles.GET("/me/followers", required, profileHandler.Followers)
			profiles.GET("/me/following", required, profileHandler.Following)
			profiles.GET("/me/read-stats", required, profileHandler.ReadStats)
			profiles.GET("/:username", optional, profileHandler.Get)
			profiles.PATCH("/:username", required, profileHandler.Update)
			profiles.POST("/:username/follow", required, profileHandler.Follow)
			profiles.DELETE("/:username/follow", required, profileHandler.Unfollow)
		}

		articles := api.Group("/articles")
		{
			articles.GET("", optional, articleHandler.List)
			articles.POST("", required, articleHandler.Create)
			articles.GET("/feed", required, feedHandler.GetPersonalizedFeed)
			articles.GET("/:slug", optional, articleHandler.Get)
			articles.PATCH("/:slug", required, articleHandler.Update)
			articles.DELETE("/:slug", required, articleHandler.Delete)

			articles.POST("/:slug/favorite", required, articleHandler.Favorite)
			articles.DELETE("/:slug/favorite", required, articleHandler.Unfavorite)
			articles.POST("/:slug/rate", required, articleHandler.Rate)
			articles.POST("/:slug/bookmark", required, articleHandler.AddBookmark)
			articles.DELETE("/:slug/bookmark", required, articleHandler.RemoveBookmark)
			articles.POST("/:slug/report", required, articleHandler.Report)

			articles.GET("/:slug/comments", optional, commentHandler.List)
			articles.POST("/:slug/comments", required, commentHandler.Create)

			articles.POST("/:slug/:reaction", required, articleHandler.React)
			articles.DELETE("/:slug/:reaction", required, articleHandler.Unreact)
			articles.GET("/:slug/:reaction/status", required, articleHandler.ReactionStatus)
		}

		api.GET("/tags", articleHandler.Tags)
		api.GET("/feeds/global", optional, feedHandler.GetGlobalFeed)
		api.GET("/bookmarks", required, articleHandler.Bookmarks)
		api.GET("/reports", required, articleHandler.Reports)
		api.GET("/reports/:id", required, articleHandler.GetReport)

		comments := api.Group("/comments")
		{
			comments.GET("/:id", optional, commentHandler.Get)
			comments.PATCH("/:id", required, commentHandler.Update)
			comments.DELETE("/:id", required, commentHandler.Delete)
			comments.GET("/:id/history", required, commentHandler.History)
			comments.GET("/:id/replies", optional, commentHandler.Replies)
			comments.POST("/:id/replies", required, commentHandler.CreateReply)
			comments.POST("/:id/:reaction", required, commentHandler.React)
			comments.DELETE("/:id/:reaction", required, commentHandler.Unreact)
		}

		replies := api.Group("/replies")
		{
			replies.GET("/:id", optional, commentHandler.GetReply)
			replies.PATCH("/:id", required, commentHandler.UpdateReply)
			replies.DELETE("/:id", required, commentHandler.DeleteReply)
			replies.GET("/:id/history", required, commentHandler.ReplyHistory)
		}

		notes := api.Group("/notifications", required)
		{
			notes.GET("", notificationHandler.List)
			notes.POST("", notificationHandler.MarkAllRead)
			notes.GET("/settings", notificationHandler.GetSettings)
			notes.PATCH("/settings", notificationHandler.UpdateSettings)
			notes.GET("/ws", notificationHandler.Live)
		}
	}

	// Admin routes (password protected)
	admin := r.Group("/admin", adminHandler.AdminAuth())
	{
		admin.GET("", adminHandler.ServeAdminDashboard)
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/reports", adminHandler.ServeReportsPage)
		admin.GET("/worker", feedHandler.WorkerStatus)
	}

	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
