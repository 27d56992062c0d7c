package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Optional dependencies left nil in RouterConfig leave their routes out.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Scheduler, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Books API endpoints
	if cfg.Books != nil {
		booksController := NewBooksController(cfg.Books)
		router.GET("/api/books", booksController.GetAllBooks)
		router.GET("/api/books/stats", booksController.GetBookStats)
		router.GET("/api/books/lookup", booksController.LookupBook)
		router.GET("/api/books/:id", booksController.GetBook)
		router.GET("/api/books/:id/highlights", booksController.GetBookHighlights)
		router.GET("/api/books/:id/markdown", booksController.DownloadMarkdown)
		router.DELETE("/api/books/:id", booksController.DeleteBook)
		router.GET("/api/weread/books/:bookId", booksController.GetBookByExternalID)
	}

	// WeRead sync endpoints
	if cfg.SettingsStore != nil {
		wereadController := NewWeReadController(cfg.SettingsStore, cfg.Scheduler, cfg.SyncProgress, cfg.AuditService)
		router.GET("/api/weread/status", wereadController.GetStatus)
		router.POST("/api/weread/sync", wereadController.SyncNow)
		router.POST("/api/weread/settings", wereadController.UpdateSettings)
		router.POST("/api/weread/settings/reset", wereadController.ResetSettings)
		router.GET("/api/weread/reader-url/:bookId", wereadController.ReaderURL)
	} else {
		router.GET("/api/weread/reader-url/:bookId", (&WeReadController{}).ReaderURL)
	}

	// Audit endpoints
	if cfg.AuditService != nil {
		auditController := NewAuditController(cfg.AuditService)
		router.GET("/api/audit", auditController.GetAuditEvents)
		router.GET("/api/audit/runs/:runId", auditController.GetRunEvents)
	}

	return router
}
