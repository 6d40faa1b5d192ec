package api

import (
	"github.com/Conceptual-Machines/midigen-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/midigen-api/internal/api/middleware"
	"github.com/Conceptual-Machines/midigen-api/internal/config"
	"github.com/Conceptual-Machines/midigen-api/internal/identity"
	"github.com/Conceptual-Machines/midigen-api/internal/middleware"
	"github.com/Conceptual-Machines/midigen-api/internal/music"
	"github.com/Conceptual-Machines/midigen-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the constructed collaborators the routes are wired to
type Dependencies struct {
	DB          *gorm.DB
	Config      *config.Config
	Version     string
	Identity    *identity.Provider
	Generations *services.GenerationService
	Metrics     apimiddleware.RequestRecorder
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	cfg := deps.Config

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(deps.Metrics))

	router.Use(apimiddleware.CORS(cfg.CORSOrigins))

	// Health check
	healthHandler := handlers.NewHealthHandler(deps.DB)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(deps.Version, handlers.ServiceInfo{
		AIProvider:     cfg.AIProvider,
		AIModel:        cfg.AIModel,
		StorageBackend: cfg.StorageBackend,
		Instruments:    music.Instruments(),
	})
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	requireAuth := middleware.JWTAuth(deps.Identity)

	// Auth routes
	authHandler := handlers.NewAuthHandler(deps.Identity, deps.Generations)
	auth := router.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", requireAuth, authHandler.Me)
		auth.DELETE("/me", requireAuth, authHandler.DeleteMe)
	}

	// Generation routes (require JWT)
	genHandler := handlers.NewGenerationHandler(deps.Generations)
	generate := router.Group("/generate")
	generate.Use(requireAuth)
	{
		generate.GET("/instruments", genHandler.Instruments)
		generate.POST("/ai-response", genHandler.Generate)
		generate.POST("/midi", genHandler.Encode)
		generate.POST("/save", genHandler.Save)
		generate.POST("/batch/save", genHandler.BatchSave)
		generate.DELETE("/batch", genHandler.BatchDelete)
		generate.GET("/user/:userId", genHandler.ListByUser)
		generate.GET("/:id", genHandler.Get)
		generate.GET("/:id/download", genHandler.Download)
		generate.GET("/:id/notes", genHandler.Notes)
		generate.PATCH("/:id", genHandler.Update)
		generate.DELETE("/:id", genHandler.Delete)
	}

	return router
}
