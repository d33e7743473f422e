package http

import (
	"github.com/gin-gonic/gin"

	"github.com/readledger/readledger/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// Session middleware must run before anything that reads or writes
	// session state.
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	authController := NewAuthController(cfg.AuthService, cfg.Users, cfg.SessionManager)
	categoriesController := NewCategoriesController(cfg.Categories)
	booksController := NewBooksController(cfg.Books, cfg.Categories, cfg.UserBooks, cfg.ReadingLogs)
	progressController := NewProgressController(cfg.Progress)
	statsController := NewStatsController(cfg.Progress)
	var metadataController *MetadataController
	if cfg.MetadataEnricher != nil {
		metadataController = NewMetadataController(cfg.MetadataEnricher, cfg.Books, cfg.TaskClient)
	}

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Public auth endpoints
	router.POST("/api/auth/register", authController.Register)
	router.POST("/api/auth/login", authController.Login)

	// Everything else requires a Bearer access key or a session.
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireUser())

	api.POST("/auth/logout", authController.Logout)
	api.GET("/me", authController.Me)
	api.PUT("/me/goals", authController.UpdateGoals)

	// Category endpoints
	api.GET("/categories", categoriesController.GetAllCategories)
	api.POST("/categories", categoriesController.CreateCategory)
	api.PUT("/categories/:id", categoriesController.UpdateCategory)
	api.DELETE("/categories/:id", categoriesController.DeleteCategory)

	// Books API endpoints. The completed listing is registered before the
	// :id routes so gin does not treat "completed" as an ID.
	api.GET("/books", booksController.GetAllBooks)
	api.POST("/books", booksController.UpsertBook)
	api.GET("/books/completed", booksController.GetCompletedBooks)
	api.GET("/books/:id", booksController.GetBook)
	api.PUT("/books/:id", booksController.EditBook)
	api.DELETE("/books/:id", booksController.DeleteBook)
	api.PUT("/books/:id/rating", booksController.RateBook)

	// Progress ledger endpoint
	api.POST("/books/:id/progress", progressController.LogProgress)

	// Book metadata enrichment endpoint
	if metadataController != nil {
		api.POST("/books/:id/enrich", metadataController.EnrichBook)
	}

	// Stats endpoints
	api.GET("/stats/monthly", statsController.GetMonthly)
	api.GET("/stats/streak", statsController.GetStreak)
	api.GET("/stats/summary", statsController.GetSummary)

	return router
}
