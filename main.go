package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/portfolio-api/internal/blob"
	"github.com/msomdec/portfolio-api/internal/config"
	"github.com/msomdec/portfolio-api/internal/domain"
	"github.com/msomdec/portfolio-api/internal/handler"
	"github.com/msomdec/portfolio-api/internal/repository/sqlite"
	"github.com/msomdec/portfolio-api/internal/service"
	"github.com/msomdec/portfolio-api/internal/thumbnail"
	"github.com/msomdec/portfolio-api/internal/worker"
)

const uploadPrefix = "/uploads"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	store, err := blob.NewStore(cfg.UploadDir, uploadPrefix)
	if err != nil {
		slog.Error("failed to open upload directory", "error", err)
		os.Exit(1)
	}

	deriver := thumbnail.New(thumbnail.WithReleaseMemory(cfg.ThumbnailReleaseMemory))

	var photoService *service.PhotoService
	pool := worker.New(func(ctx context.Context, job domain.IngestionJob) error {
		return photoService.ProcessThumbnail(ctx, job)
	}, worker.Options{
		Workers:    cfg.ThumbnailWorkers,
		QueueDepth: cfg.ThumbnailQueueDepth,
		JobTimeout: cfg.ThumbnailTimeout,
		Logger:     logger,
	})
	photoService = service.NewPhotoService(db.Photos(), db.Albums(), store, pool, deriver)
	pool.Start()

	authService := service.NewAuthService(db.Users(), cfg.JWTSecret, cfg.BcryptCost, cfg.AccessTokenTTL)
	albumService := service.NewAlbumService(db.Albums(), photoService)
	bookingService := service.NewBookingService(db.Bookings())

	loginLimiter := service.PerMinute(cfg.LoginRatePerMinute)
	defer loginLimiter.Close()
	bookingLimiter := service.PerMinute(cfg.BookingRatePerMinute)
	defer bookingLimiter.Close()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Deps{
		Auth:           authService,
		Albums:         albumService,
		Photos:         photoService,
		Bookings:       bookingService,
		DB:             db.SqlDB,
		LoginLimiter:   loginLimiter,
		BookingLimiter: bookingLimiter,
		UploadDir:      store.Root(),
		UploadPrefix:   uploadPrefix,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.RequestID(handler.AccessLog(handler.SecurityHeaders(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "thumbnail_workers", cfg.ThumbnailWorkers)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Queued thumbnails get a longer grace period than in-flight requests.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.ThumbnailTimeout)
	defer cancelDrain()
	if err := pool.Shutdown(drainCtx); err != nil {
		slog.Warn("thumbnail queue not drained", "error", err, "remaining", pool.Len())
	}
	slog.Info("server stopped")
}
