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

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/storyhub/backend/internal/auth"
	"github.com/ayush/storyhub/backend/internal/clock"
	"github.com/ayush/storyhub/backend/internal/config"
	"github.com/ayush/storyhub/backend/internal/content"
	"github.com/ayush/storyhub/backend/internal/logging"
	"github.com/ayush/storyhub/backend/internal/routes"
	"github.com/ayush/storyhub/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	log, logCloser, err := logging.New(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		slog.Error("logging", "err", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()
	clk := clock.Real{}

	// ── Signing and hashing (misconfiguration is fatal) ──────
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn, clk)
	if err != nil {
		return err
	}
	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}

	// ── MongoDB ──────────────────────────────────────────────
	var mongoStore *store.MongoStore
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return err
		}
		defer mongoClient.Disconnect(context.Background())
		mongoStore = store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return err
		}
		log.Info("mongo connected", "db", cfg.MongoDB)
	}

	// ── User store ───────────────────────────────────────────
	var users auth.UserStore
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		pgStore := store.NewPostgresStore(pgPool)
		if err := pgStore.Migrate(ctx); err != nil {
			return err
		}
		users = pgStore
	case config.BackendMemory:
		users = store.NewMemoryUserStore()
		log.Warn("using in-memory user store; users are lost on restart")
	default:
		users = mongoStore
	}

	creds, err := auth.NewCredentials(users, hasher, cfg.PasswordMinLength, clk)
	if err != nil {
		return err
	}

	// ── Redis (login attempt limiting) ───────────────────────
	var limiter *auth.AttemptLimiter
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = auth.NewAttemptLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginAttemptWindow)
	} else {
		log.Warn("REDIS_ADDR not set; login attempts are not limited")
	}

	// ── MinIO ────────────────────────────────────────────────
	var files content.FileStore
	if cfg.MinioConfigured() {
		minioStore, err := store.NewMinioStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			return err
		}
		files = minioStore
	} else {
		log.Warn("MINIO_ENDPOINT or MINIO_ACCESS_KEY not set; uploads are disabled")
	}

	// ── Handlers ─────────────────────────────────────────────
	var stories content.StoryStore
	var messages content.MessageStore
	if mongoStore != nil {
		stories, messages = mongoStore, mongoStore
	} else {
		mem := store.NewMemoryContentStore()
		stories, messages = mem, mem
	}

	handler := routes.New(routes.Deps{
		Auth:         auth.NewHandler(creds, tokens, limiter, log),
		Content:      content.NewHandler(stories, messages, creds, files, cfg.MaxUploadBytes, clk, log),
		Guard:        auth.NewGuard(tokens, creds),
		Log:          log,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("backend listening", "port", cfg.Port, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
