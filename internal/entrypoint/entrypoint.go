package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/readledger/readledger/internal/auth"
	"github.com/readledger/readledger/internal/config"
	"github.com/readledger/readledger/internal/database"
	"github.com/readledger/readledger/internal/database/books"
	"github.com/readledger/readledger/internal/database/categories"
	"github.com/readledger/readledger/internal/database/readinglogs"
	"github.com/readledger/readledger/internal/database/userbooks"
	"github.com/readledger/readledger/internal/database/users"
	http_controllers "github.com/readledger/readledger/internal/http"
	"github.com/readledger/readledger/internal/metadata"
	"github.com/readledger/readledger/internal/progress"
	"github.com/readledger/readledger/internal/scheduler"
	"github.com/readledger/readledger/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then drains it
// within the configured shutdown timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue and cron)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the application together and serves it.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting ReadLedger v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Repositories and the progress service
	userRepo := users.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	categoryRepo := categories.NewRepository(db.DB)
	userBookRepo := userbooks.NewRepository(db.DB)
	logRepo := readinglogs.NewRepository(db.DB)
	progressService := progress.NewService(db.DB)

	// Metadata enricher for catalog enrichment from OpenLibrary
	var metadataEnricher *metadata.Enricher
	if cfg.Enrichment.Enabled {
		metadataEnricher = metadata.NewEnricher(metadata.NewOpenLibraryClient(), bookRepo)
	}

	// Task queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(tasks.NewReconcileLinkQueue(progressService))
		if metadataEnricher != nil {
			taskClient.Register(tasks.NewEnrichBookQueue(metadataEnricher))
		}

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Nightly reconciliation sweep
	var sweep *scheduler.ReconcileSweepScheduler
	if cfg.Sweep.Enabled && taskClient != nil {
		sweep = scheduler.NewReconcileSweepScheduler(userBookRepo, taskClient, cfg.Sweep.Schedule)
		if err := sweep.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start reconcile sweep: %v", err)
		}
	} else if cfg.Sweep.Enabled {
		log.Printf("WARNING: reconcile sweep requires the task queue; set TASKS_ENABLED=true")
	}

	// Authentication
	authService := auth.NewService(userRepo, cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}
	authMiddleware := auth.NewMiddleware(authService, sessionManager)

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Database:         db,
		Users:            userRepo,
		Books:            bookRepo,
		Categories:       categoryRepo,
		UserBooks:        userBookRepo,
		ReadingLogs:      logRepo,
		Progress:         progressService,
		AuthService:      authService,
		SessionManager:   sessionManager,
		AuthMiddleware:   authMiddleware,
		MetadataEnricher: metadataEnricher,
		TaskClient:       taskClient,
		Version:          version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		if sweep != nil {
			sweep.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
