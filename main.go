package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/midigen-api/internal/api"
	"github.com/Conceptual-Machines/midigen-api/internal/config"
	"github.com/Conceptual-Machines/midigen-api/internal/database"
	"github.com/Conceptual-Machines/midigen-api/internal/identity"
	"github.com/Conceptual-Machines/midigen-api/internal/llm"
	"github.com/Conceptual-Machines/midigen-api/internal/metrics"
	"github.com/Conceptual-Machines/midigen-api/internal/observability"
	"github.com/Conceptual-Machines/midigen-api/internal/prompt"
	"github.com/Conceptual-Machines/midigen-api/internal/services"
	"github.com/Conceptual-Machines/midigen-api/internal/storage"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "midigen-api@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            cfg.Environment != environmentProduction,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	observability.InitializeLangfuse(ctx, cfg)

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to run migrations:", err)
	}

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to initialize object storage:", err)
	}

	provider, err := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey).GetProvider(ctx, cfg.AIModel, cfg.AIProvider)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to initialize AI provider:", err)
	}

	prompts, err := prompt.NewPromptBuilder()
	if err != nil {
		log.Fatal("Failed to load prompts:", err)
	}

	cloudwatchClient, err := metrics.NewClient(ctx, cfg.Environment, cfg.MetricsEnabled || cfg.IsProduction())
	if err != nil {
		log.Printf("CloudWatch metrics unavailable: %v", err)
	}
	recorder := metrics.New(metrics.NewSentryMetrics(), cloudwatchClient)
	defer recorder.Flush()

	identityProvider, err := identity.NewProvider(database.NewUserRepository(db), cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatal("Failed to initialize identity provider:", err)
	}

	generations := services.NewGenerationService(
		provider,
		database.NewGenerationRepository(db),
		objects,
		prompts,
		recorder,
		services.GenerationConfig{
			Model:          cfg.AIModel,
			AITimeout:      cfg.AITimeout,
			StorageTimeout: cfg.StorageTimeout,
		},
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.Dependencies{
		DB:          db,
		Config:      cfg,
		Version:     GetVersion(),
		Identity:    identityProvider,
		Generations: generations,
		Metrics:     recorder,
	})

	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.StorageBackend == config.StorageBackendS3 {
		return storage.NewS3Store(ctx, cfg.StorageBucket)
	}
	log.Printf("📁 Object storage: local directory %s", cfg.StorageLocalDir)
	return storage.NewLocalStore(cfg.StorageLocalDir)
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
