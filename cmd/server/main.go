// Command server runs the formdeck HTTP dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"formdeck/internal/api"
	"formdeck/internal/config"
	"formdeck/internal/masters"
	"formdeck/internal/meta"
	"formdeck/internal/store"
	"formdeck/internal/store/memory"
	"formdeck/internal/store/postgres"
	"formdeck/pkg/logger"
)

func main() {
	cfg, err := config.Load(config.DefaultPath, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDev})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	ctx := logger.WithLogger(context.Background(), log)

	st, reloader, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open store", "error", err)
	}
	defer closeStore()

	if !cfg.LogDev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Service:   masters.NewService(st, masters.WithPageSize(cfg.PageSize)),
		Reloader:  reloader,
		ConfigDir: cfg.ConfigDir,
		Log:       log,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr, "memory", cfg.DBURL == "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
}

// openStore: пустой dbUrl — in-memory store из YAML, иначе Postgres.
func openStore(ctx context.Context, cfg config.Config) (store.Store, store.Reloader, func(), error) {
	log := logger.FromContext(ctx)

	if cfg.DBURL == "" {
		b, err := meta.LoadDir(cfg.ConfigDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load %s: %w", cfg.ConfigDir, err)
		}
		if issues := meta.Lint(b.Forms); len(issues) > 0 {
			for _, it := range issues {
				log.Errorw("configuration issue", "issue", it.String())
			}
			return nil, nil, nil, fmt.Errorf("%s: %d blocking configuration issues", cfg.ConfigDir, len(issues))
		}
		log.Infow("in-memory store ready", "config_dir", cfg.ConfigDir, "forms", len(b.Forms), "tables", len(b.Data))
		st := memory.New(b)
		return st, st, func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.DBURL, postgres.DefaultPool)
	if err != nil {
		return nil, nil, nil, err
	}
	st := postgres.New(db)
	if cfg.AutoMigrate {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, nil, nil, err
		}
	}
	log.Info("postgres store ready")
	return st, nil, func() { _ = st.Close() }, nil
}
