package entrypoint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	http_controllers "github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/scheduler"
	"github.com/mrlokans/librarian/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 sends SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener goes away
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Librarian v%s", version)

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Initialize task queue if enabled
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

		taskClient.RegisterMaintenance(tasks.Maintenance{
			Sweeper:  app.Sweeper,
			Reporter: app.Audit,
			Cleaner:  app.Audit,
		})

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		taskClient.Start(taskCtx)
	}

	sched, err := newScheduler(cfg, app, taskClient)
	if err != nil {
		log.Fatalf("Failed to configure scheduler: %v", err)
	}
	schedCtx, schedCancel := context.WithCancel(context.Background())
	sched.Start(schedCtx)

	sqlDB, err := app.DB.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, auth.SessionConfig{
		Lifetime: cfg.Session.Lifetime,
		Secure:   cfg.Session.SecureCookies,
	})
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	csrfSecret := decodeSecret(cfg.Session.CSRFSecret)
	if csrfSecret == nil {
		log.Printf("WARNING: CSRF_SECRET is not set. CSRF protection is disabled.")
	}

	routerCfg := http_controllers.RouterConfig{
		Catalog:            app.Catalog,
		Database:           app.DB,
		Audit:              app.Audit,
		Reports:            app.Reports,
		Attachments:        app.Images,
		Sweeper:            app.Sweeper,
		StorageDir:         cfg.Storage.Dir,
		PublicPath:         cfg.Storage.PublicPath,
		Sessions:           sessionManager,
		CSRFSecret:         csrfSecret,
		SecureCookies:      cfg.Session.SecureCookies,
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		MetricsEnabled:     cfg.Metrics.Enabled,
		MaxUploadBytes:     cfg.Storage.MaxUploadBytes,
		Version:            version,
	}
	// A nil *tasks.Client must not become a non-nil interface
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		sched.Stop()
		schedCancel()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

// newScheduler registers the periodic maintenance jobs. Jobs go through the
// task queue when one is running.
func newScheduler(cfg *config.Config, app *App, taskClient *tasks.Client) (*scheduler.Scheduler, error) {
	var queue scheduler.Enqueuer
	if taskClient != nil {
		queue = taskClient
	}

	sched := scheduler.New()
	if cfg.Sweep.Schedule != "" {
		if err := sched.Add(scheduler.SweepImagesJob(cfg.Sweep.Schedule, queue, app.Sweeper, app.Audit)); err != nil {
			return nil, err
		}
	}
	if cfg.Audit.CleanupSchedule != "" {
		if err := sched.Add(scheduler.CleanupAuditJob(cfg.Audit.CleanupSchedule, cfg.Audit.RetentionDays, queue, app.Audit)); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

// decodeSecret accepts a hex encoded key and falls back to the raw bytes.
func decodeSecret(secret string) []byte {
	if secret == "" {
		return nil
	}
	if key, err := hex.DecodeString(secret); err == nil {
		return key
	}
	return []byte(secret)
}

// GenerateSecret returns a random hex key suitable for CSRF_SECRET.
func GenerateSecret() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
