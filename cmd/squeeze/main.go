package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"squeeze/internal/cleanup"
	"squeeze/internal/compress"
	"squeeze/internal/config"
	"squeeze/internal/handler"
	"squeeze/internal/image"
	"squeeze/internal/image/vips"
	"squeeze/internal/logging"
	"squeeze/internal/middleware"
	"squeeze/internal/storage"
)

func main() {
	cfg := config.Load()

	if err := logging.Init(cfg.LogDir); err != nil {
		log.Fatalf("Failed to init logging: %v", err)
	}
	defer logging.Close()
	logger := logging.Get(logging.App)

	var proc image.Processor
	switch cfg.Backend {
	case "vips":
		proc = vips.NewProcessor()
	case "native", "":
		proc = image.NewProcessor()
	default:
		log.Fatalf("Unknown backend %q (want native or vips)", cfg.Backend)
	}

	var (
		db *storage.DB
		fs *storage.Filesystem
	)
	if cfg.CacheEnabled {
		var err error
		db, err = storage.NewDB(cfg.DataDir)
		if err != nil {
			log.Fatalf("Failed to init DB: %v", err)
		}
		defer db.Close()

		fs, err = storage.NewFilesystem(cfg.DataDir)
		if err != nil {
			log.Fatalf("Failed to init filesystem: %v", err)
		}
		proc = compress.NewCachedProcessor(proc, db, fs)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := compress.NewManager(proc, cfg.MaxFileSize(), time.Duration(cfg.SessionTTLMin)*time.Minute)
	traffic := middleware.NewTrafficStats()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
		limiter.Run(ctx)
	}

	cleanup.NewDaemon(cfg, db, fs, sessions).Start(ctx)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.Deps{
			Config:      cfg,
			Processor:   proc,
			Sessions:    sessions,
			DB:          db,
			Traffic:     traffic,
			RateLimiter: limiter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	logger.Printf("starting server on :%s backend=%s cache=%v max_file=%dMB", cfg.Port, proc.Name(), cfg.CacheEnabled, cfg.MaxFileSizeMB)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("server error: %v", err)
		os.Exit(1)
	}
	logger.Printf("server stopped")
}
