package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mkorchagin/accountsvc/modules/account"
	"github.com/mkorchagin/accountsvc/pkg/config"
	"github.com/mkorchagin/accountsvc/pkg/file"
	"github.com/mkorchagin/accountsvc/pkg/httpserver"
	"github.com/mkorchagin/accountsvc/pkg/logger"
	"github.com/mkorchagin/accountsvc/pkg/mongo"
	"github.com/mkorchagin/accountsvc/pkg/ratelimit"
	"github.com/mkorchagin/accountsvc/pkg/redis"
)

type storageConfig struct {
	// S3 takes precedence when a bucket is configured; otherwise files go to
	// the local directory.
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKey string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3BaseURL   string `env:"S3_BASE_URL"`

	LocalDir     string `env:"LOCAL_STORAGE_DIR" envDefault:"./uploads"`
	LocalBaseURL string `env:"LOCAL_STORAGE_BASE_URL" envDefault:"/files/"`
}

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`

	HTTP    httpserver.Config
	Mongo   mongo.Config
	Redis   redis.Config
	Account account.Config
	Storage storageConfig
}

func main() {
	ctx := context.Background()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.Env, "accountsvc"))
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	db, err := mongo.NewWithDatabase(ctx, cfg.Mongo, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			log.Warn("failed to disconnect mongo client", logger.Error(err))
		}
	}()

	storage := account.NewMongoStorage(db)
	if err := storage.EnsureIndexes(ctx); err != nil {
		return err
	}

	files, err := newFileStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	healthchecks := []func(context.Context) error{
		mongo.Healthcheck(db.Client()),
	}

	// Redis is optional; without it the reset rate limiter falls back to a
	// per-process in-memory store.
	var limiterStore ratelimit.Store
	if cfg.Redis.ConnectionURL != "" {
		redisClient, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Warn("failed to close redis client", logger.Error(err))
			}
		}()
		limiterStore = ratelimit.NewRedisStore(redisClient)
		healthchecks = append(healthchecks, redis.Healthcheck(redisClient))
		log.Info("reset rate limiter backed by redis")
	} else {
		memStore := ratelimit.NewMemoryStore()
		defer memStore.Close()
		limiterStore = memStore
		log.Info("reset rate limiter backed by process memory")
	}

	limiter, err := ratelimit.NewFixedWindow(limiterStore, cfg.Account.ResetRateLimit, cfg.Account.ResetRateWindow)
	if err != nil {
		return err
	}

	svc, err := account.NewService(cfg.Account, storage, files, account.WithLogger(log))
	if err != nil {
		return err
	}

	accountRouter := account.NewRouter(svc,
		account.WithRouterLogger(log),
		account.WithErrorDetails(cfg.Env == "development"),
		account.WithResetRateLimiter(ratelimit.Middleware(limiter, ratelimit.ByClientIP(),
			ratelimit.WithOnLimitReached(func(w http.ResponseWriter, _ *http.Request, _ *ratelimit.Result) {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"message":"Too many password reset attempts. Please try again later."}`))
			}))),
	)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(httpserver.SecurityHeaders)
	r.NotFound(httpserver.NotFoundJSON("Route not found"))

	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, healthchecks...))
	r.Mount("/api", accountRouter.Handler())

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	log.Info("starting server", slog.String("addr", cfg.HTTP.Addr), slog.String("env", cfg.Env))
	return srv.Run(ctx, r)
}

func newFileStorage(ctx context.Context, cfg storageConfig) (file.Storage, error) {
	if cfg.S3Bucket != "" {
		return file.NewS3Storage(ctx, file.S3Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			AccessKeyID:    cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Endpoint:       cfg.S3Endpoint,
			BaseURL:        cfg.S3BaseURL,
			ForcePathStyle: cfg.S3Endpoint != "",
		})
	}
	return file.NewLocalStorage(cfg.LocalDir, cfg.LocalBaseURL)
}
