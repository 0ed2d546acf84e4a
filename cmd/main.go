package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scms/backend/internal/api/handler"
	"scms/backend/internal/auth"
	"scms/backend/internal/blob"
	"scms/backend/internal/complaint"
	"scms/backend/internal/config"
	"scms/backend/internal/hub"
	"scms/backend/internal/localization"
	"scms/backend/internal/logging"
	"scms/backend/internal/notification"
	"scms/backend/internal/ratelimit"
	"scms/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func setupRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		slog.Info("REDIS_ADDR not set, live notifications stay on this instance and auth is not rate limited")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("failed to connect redis", "addr", cfg.Redis.Addr, "err", err)
		os.Exit(1)
	}
	return rdb
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "err", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)
	for _, key := range cfg.InsecureDefaults() {
		slog.Warn("development default in use, override it before deploying", "key", key)
	}
	slog.Info("starting complaint management backend", "port", cfg.Port, "storage", cfg.StorageDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	rdb := setupRedis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	blobs, err := blob.Open(cfg)
	if err != nil {
		slog.Error("failed to open blob store", "driver", cfg.Upload.Driver, "err", err)
		os.Exit(1)
	}

	messages, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		slog.Error("failed to load message catalogs", "dir", cfg.LocalesDir, "err", err)
		os.Exit(1)
	}

	// 2. Live notification hub
	notificationHub := hub.NewManagerService(rdb, cfg.Redis.Channel)
	if err := notificationHub.Start(ctx); err != nil {
		slog.Error("failed to start notification hub", "err", err)
		os.Exit(1)
	}

	// 3. Services
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authSvc := auth.NewService(store, tokens, auth.AdminAccount{
		Username:     cfg.Auth.AdminUsername,
		Password:     cfg.Auth.AdminPassword,
		PasswordHash: cfg.Auth.AdminPasswordHash,
	})
	notes := notification.NewService(store, messages, notificationHub)
	complaints := complaint.NewService(store, blobs, notes)
	complaints.Staff = cfg.Staff
	complaints.Buildings = cfg.Buildings
	complaints.ImageExtensions = cfg.Upload.Extensions
	complaints.MaxImageBytes = cfg.Upload.MaxBytes

	// 4. HTTP
	gin.SetMode(gin.ReleaseMode)
	h := handler.NewHandler(authSvc, complaints, notes, notificationHub)
	h.MaxUploadBytes = cfg.Upload.MaxBytes
	h.UploadBaseURL = cfg.Upload.BaseURL
	h.TrustedProxies = cfg.TrustedProxies
	if cfg.Upload.Driver == "file" {
		h.UploadDir = cfg.Upload.Dir
	}
	if rdb != nil && cfg.Auth.RateLimitPerMinute > 0 {
		h.Limiter, err = ratelimit.NewFixedWindowLimiter(rdb, "complaints:ratelimit:auth", cfg.Auth.RateLimitPerMinute, time.Minute)
		if err != nil {
			slog.Error("failed to create rate limiter", "err", err)
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
	}
}
