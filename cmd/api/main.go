package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/just-aakash/cyberknights/internal/config"
	"github.com/just-aakash/cyberknights/internal/httpapi"
	"github.com/just-aakash/cyberknights/internal/httpmiddleware"
	"github.com/just-aakash/cyberknights/internal/identity"
	"github.com/just-aakash/cyberknights/internal/intake"
	"github.com/just-aakash/cyberknights/internal/ledger"
	"github.com/just-aakash/cyberknights/internal/queue"
	"github.com/just-aakash/cyberknights/internal/roster"
	"github.com/just-aakash/cyberknights/internal/store"
	"github.com/just-aakash/cyberknights/internal/store/memory"
	"github.com/just-aakash/cyberknights/internal/store/postgres"
	"github.com/just-aakash/cyberknights/internal/store/sqlite"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(cfg config.App) error {
	st, err := openStore(cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var events queue.Queue
	if cfg.QueueBackend == "redis" {
		events = queue.NewRedisQueue(redisClient.Client, store.MarkQueueKey)
	} else {
		events = queue.NewInMemory(64)
	}

	photos, serveUploads, err := openIntake(cfg)
	if err != nil {
		return err
	}

	ids := identity.NewService(st)
	ros := roster.NewService(st)
	led := ledger.NewService(st)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ids.Seed(seedCtx); err != nil {
		cancelSeed()
		return err
	}
	cancelSeed()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Gin())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if serveUploads {
		r.Static("/uploads", cfg.MediaDir)
	}

	httpapi.New(cfg, st, ids, ros, led, photos, events, redisClient).Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}
	log.Println("server exited")
	return nil
}

// openStore picks the backend from the DSN shape: "memory", a
// postgres:// URL, or a sqlite file path.
func openStore(dsn string) (store.Store, error) {
	switch {
	case dsn == "memory":
		return memory.New(), nil
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		return postgres.New(dsn)
	default:
		return sqlite.New(dsn)
	}
}

// openIntake returns the photo intake and whether the media dir should
// be served statically (disk backend only).
func openIntake(cfg config.App) (intake.Store, bool, error) {
	if cfg.MediaBackend == "cloudinary" {
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			log.Println("cloudinary not configured, falling back to disk intake")
		} else {
			log.Println("cloudinary intake configured:", cfg.CloudinaryCloudName)
			return intake.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder), false, nil
		}
	}
	disk, err := intake.NewDisk(cfg.MediaDir, "/uploads")
	if err != nil {
		return nil, false, err
	}
	return disk, true, nil
}

// CORS middleware for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
