package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/attachments"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/metrics"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.MetricsEnabled {
		router.Use(metrics.Middleware())
	}

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CORS answers preflights before CSRF can reject them
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(CORSMiddleware(cfg.CORSAllowedOrigins))
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.Sessions != nil {
		router.Use(cfg.Sessions.SessionLoadSave())
	}

	if cfg.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	publicPath := cfg.PublicPath
	if publicPath == "" {
		publicPath = attachments.DefaultPublicPath
	}
	if cfg.StorageDir != "" {
		router.Static(publicPath, cfg.StorageDir)
	}

	health := NewHealthController(cfg.Database, cfg.StorageDir, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	if cfg.MetricsEnabled {
		router.GET("/metrics", metrics.Handler())
	}

	api := router.Group("/api")

	if cfg.Catalog != nil {
		registerCatalog(api, cfg)

		dashboard := NewDashboardController(cfg.Catalog, cfg.Attachments, cfg.Sessions, cfg.Audit)
		api.GET("/dashboard", dashboard.Dashboard)
		api.DELETE("/dashboard/borrow_requests/:id", dashboard.DeleteBorrowRequest)
		api.GET("/members", dashboard.Members)
		api.GET("/flash", dashboard.Flash)
	}

	images := NewImagesController(cfg.TaskQueue, cfg.Sweeper, cfg.Audit)
	api.POST("/admin/images/sweep", images.Sweep)

	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		api.GET("/audit", auditController.GetAuditEvents)
	}

	return router
}

func registerCatalog(api *gin.RouterGroup, cfg RouterConfig) {
	cat := cfg.Catalog
	transfer := NewTransferController(cat, cfg.Reports, cfg.Sessions, cfg.Audit)

	registerResource(api, cat.Books, transfer, cfg)
	registerResource(api, cat.Authors, transfer, cfg)
	registerResource(api, cat.Categories, transfer, cfg)
	registerResource(api, cat.Shelves, transfer, cfg)
	registerResource(api, cat.Users, transfer, cfg)
	registerResource(api, cat.Borrowings, transfer, cfg)
	registerResource(api, cat.Returnings, transfer, cfg)
}

func registerResource[T any](api *gin.RouterGroup, res *library.Resource[T], transfer *TransferController, cfg RouterConfig) {
	rc := NewResourceController(res, cfg.Attachments, cfg.Sessions, cfg.Audit)

	g := api.Group("/" + res.Name)
	g.GET("", rc.Index)
	g.POST("", rc.Store)
	g.POST("/import", transfer.Import(res.Name))
	g.GET("/export", transfer.Export(res.Name))
	g.GET("/:id", rc.Show)
	g.PUT("/:id", rc.Update)
	g.DELETE("/:id", rc.Destroy)
}
