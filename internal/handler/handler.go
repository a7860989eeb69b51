package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Ackberry/cinetune/internal/config"
	"github.com/Ackberry/cinetune/internal/middleware"
	"github.com/Ackberry/cinetune/internal/repository"
	"github.com/Ackberry/cinetune/internal/service"
	"github.com/Ackberry/cinetune/pkg/feed"
)

// Handler handles HTTP and websocket requests.
type Handler struct {
	profileService service.ProfileService
	convService    service.ConversationService
	libraryService service.LibraryService
	catalogService service.CatalogService

	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	feedSub  feed.Subscriber

	authMiddleware *middleware.AuthMiddleware
	wsConfig       config.WebSocketConfig
	historyLimit   int
}

// NewHandler creates a new handler.
func NewHandler(
	profileService service.ProfileService,
	convService service.ConversationService,
	libraryService service.LibraryService,
	catalogService service.CatalogService,
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	feedSub feed.Subscriber,
	authMiddleware *middleware.AuthMiddleware,
	wsConfig config.WebSocketConfig,
	historyLimit int,
) *Handler {
	return &Handler{
		profileService: profileService,
		convService:    convService,
		libraryService: libraryService,
		catalogService: catalogService,
		convRepo:       convRepo,
		msgRepo:        msgRepo,
		feedSub:        feedSub,
		authMiddleware: authMiddleware,
		wsConfig:       wsConfig,
		historyLimit:   historyLimit,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	requireAuth := h.authMiddleware.RequireAuth()

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/refresh", h.Refresh)
			auth.POST("/logout", requireAuth, h.Logout)
		}

		profiles := api.Group("/profiles")
		{
			profiles.GET("/me", requireAuth, h.GetMe)
			profiles.PATCH("/me", requireAuth, h.UpdateMe)
			profiles.GET("/discover", requireAuth, h.Discover)
			profiles.GET("/:username", h.GetProfile)
		}

		library := api.Group("/library", requireAuth)
		{
			library.GET("", h.ListLibrary)
			library.POST("", h.SaveLibraryItem)
			library.DELETE("/:id", h.RemoveLibraryItem)
		}

		catalog := api.Group("/catalog")
		{
			catalog.GET("/movies/search", h.SearchMovies)
			catalog.GET("/movies/trending", h.TrendingMovies)
			catalog.GET("/music/search", h.SearchTracks)
			catalog.GET("/music/top-tracks", h.TopTracks)
		}

		conversations := api.Group("/conversations", requireAuth)
		{
			conversations.GET("", h.ListConversations)
			conversations.POST("/direct", h.StartDirect)
			conversations.POST("/group", h.CreateGroup)
			conversations.GET("/:id/messages", h.ListMessages)
			conversations.POST("/:id/messages", h.SendMessage)
		}
	}

	r.GET("/ws/conversations/:id", requireAuth, h.ServeConversation)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
