// Package routes assembles the gin engine.
package routes

import (
	"net/http"

	"site-cms/handlers"
	"site-cms/helper"
	"site-cms/middleware"
	"site-cms/models"
	"site-cms/notify"
	"site-cms/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Auth    services.AuthService
	Links   services.LinkService
	Intake  services.IntakeService
	Review  services.ReviewService
	Stories services.StoryService
	Hub     *notify.Hub
	Helper  *helper.HTTPHelper
	Log     logrus.FieldLogger
	Limiter *middleware.IPRateLimiter

	CORSOrigins []string
	// UploadDir is served at /uploads when set.
	UploadDir          string
	MaxMultipartMemory int64
}

func Setup(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Log))
	router.Use(middleware.CORS(d.CORSOrigins))
	if d.MaxMultipartMemory > 0 {
		router.MaxMultipartMemory = d.MaxMultipartMemory
	}

	authHandler := handlers.NewAuthHandler(d.Auth, d.Helper)
	linkHandler := handlers.NewSubmissionLinkHandler(d.Links, d.Helper)
	submissionHandler := handlers.NewPendingSubmissionHandler(d.Intake, d.Review, d.Helper)
	storyHandler := handlers.NewStoryHandler(d.Stories, d.Helper)
	realtimeHandler := handlers.NewRealtimeHandler(d.Hub)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	if d.UploadDir != "" {
		router.Static("/uploads", d.UploadDir)
	}

	editors := middleware.RequireRole(d.Helper, models.RoleEditor, models.RoleAdmin)
	limited := middleware.RateLimit(d.Limiter, d.Helper)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", limited, authHandler.Login)
			auth.POST("/register", middleware.AuthMiddleware(d.Auth, d.Helper),
				middleware.RequireRole(d.Helper, models.RoleAdmin), authHandler.Register)
		}

		// Public contributor and reader routes
		v1.POST("/submission-links/:id/validate", limited, linkHandler.ValidateLink)
		v1.POST("/pending-submissions/:id/submit", limited, submissionHandler.Submit)

		public := v1.Group("/public", limited)
		{
			public.GET("/stories", storyHandler.GetPublicStories)
			public.GET("/stories/:slug", storyHandler.GetPublicStory)
		}
		v1.GET("/realtime/public", realtimeHandler.Public)

		// Staff routes
		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(d.Auth, d.Helper))
		{
			protected.GET("/profile", authHandler.GetProfile)
			protected.GET("/realtime/admin", realtimeHandler.Admin)
			protected.GET("/stories", storyHandler.GetStories)

			links := protected.Group("/submission-links")
			{
				links.GET("", linkHandler.GetLinks)
				links.GET("/:id", linkHandler.GetLink)
				links.POST("", editors, linkHandler.CreateLink)
				links.PATCH("/:id/toggle", editors, linkHandler.ToggleLink)
				links.DELETE("/:id", editors, linkHandler.DeleteLink)
			}

			submissions := protected.Group("/pending-submissions")
			{
				submissions.GET("", submissionHandler.GetSubmissions)
				submissions.GET("/:id", submissionHandler.GetSubmission)
				submissions.POST("/:id/approve", editors, submissionHandler.Approve)
				submissions.POST("/:id/reject", editors, submissionHandler.Reject)
				submissions.POST("/:id/request-revision", editors, submissionHandler.RequestRevision)
				submissions.DELETE("/:id", editors, submissionHandler.DeleteSubmission)
			}
		}
	}

	return router
}
