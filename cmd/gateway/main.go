package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"platebook/internal/archive"
	"platebook/internal/audit"
	"platebook/internal/blogapi"
	"platebook/internal/config"
	"platebook/internal/ratelimit"
	"platebook/internal/server"
	"platebook/internal/session"
	"platebook/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	sessions := session.NewRedisStore(redisClient, sessionTTL)

	var loginLimiter *ratelimit.FixedWindowLimiter
	if cfg.LoginRateLimitPerMinute > 0 {
		loginLimiter, err = ratelimit.NewFixedWindowLimiter(redisClient, "platebook:ratelimit", cfg.LoginRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init login rate limiter: %v", err)
		}
	}

	var recorder audit.Recorder = audit.NewMemoryRecorder()
	if cfg.AuditDatabaseURL != "" {
		recorder, err = audit.NewGormRecorder(cfg.AuditDatabaseURL)
		if err != nil {
			log.Fatalf("failed to init audit recorder: %v", err)
		}
	}

	var archiveStore archive.Store
	if cfg.Archive.Enabled {
		archiveStore, err = archive.NewMinioStore(cfg.Archive.Endpoint, cfg.Archive.AccessKey, cfg.Archive.SecretKey, cfg.Archive.Bucket, cfg.Archive.UseSSL)
		if err != nil {
			log.Fatalf("failed to init media archive: %v", err)
		}
	}

	client := blogapi.NewClient(cfg.BlogAPIBaseURL)
	httpServer, err := server.New(server.Config{
		Auth:                   blogapi.NewAuthClient(client),
		Recipes:                blogapi.NewRecipeRepository(client),
		Comments:               blogapi.NewCommentRepository(client),
		Media:                  blogapi.NewMediaRepository(client),
		About:                  blogapi.NewAboutRepository(client),
		Sessions:               sessions,
		Audit:                  recorder,
		Archive:                archiveStore,
		LoginLimiter:           loginLimiter,
		MaxUploadBytes:         cfg.MaxUploadBytes,
		AllowedImageExtensions: cfg.AllowedImageExtensions,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("admin gateway listening", "addr", addr, "blog_api", cfg.BlogAPIBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
