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

	"github.com/mrlokans/weread-sync/internal/config"
	http_controllers "github.com/mrlokans/weread-sync/internal/http"
	"github.com/mrlokans/weread-sync/internal/scheduler"
	"github.com/mrlokans/weread-sync/internal/settingsstore"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

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

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the server goes away
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting WeRead sync v%s", version)

	if cfg.WeRead.Cookie == "" && !cfg.CookieCloud.HasCookieCloud() {
		log.Printf("WARNING: neither WEREAD_COOKIE nor CookieCloud (CC_ID) is set. Syncs will fail until one is configured.")
	}
	if cfg.Markdown.OutputDir == "" {
		log.Printf("OUTPUT_DIR is not set, books are stored in the database only")
	}

	stack, err := NewSyncStack(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	settingsStore := settingsstore.New(stack.Database)

	syncScheduler := scheduler.NewWeReadSyncScheduler(settingsStore, stack.Service, SyncOptions(cfg)).
		WithAuditCleanup(stack.AuditService, cfg.Audit.RetentionDays)

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	if err := syncScheduler.Start(schedulerCtx); err != nil {
		log.Printf("WARNING: WeRead sync scheduler not started: %v", err)
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Books:         stack.Database,
		Database:      stack.Database,
		SettingsStore: settingsStore,
		Scheduler:     syncScheduler,
		SyncProgress:  stack.Progress,
		AuditService:  stack.AuditService,
		Version:       version,
	})

	onShutdown := func(ctx context.Context) {
		log.Println("Stopping WeRead sync scheduler...")
		stopScheduler()
		syncScheduler.Stop()
	}

	Serve(router, cfg, onShutdown)

	if err := stack.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}
