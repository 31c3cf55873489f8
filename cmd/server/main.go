package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"codecraft-ai/internal/config"
	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/domain/ports/repository"
	aiAdapters "codecraft-ai/internal/infra/adapters/ai"
	"codecraft-ai/internal/infra/api"
	"codecraft-ai/internal/infra/api/apiv1"
	pg "codecraft-ai/internal/infra/db/postgres"
	"codecraft-ai/internal/infra/db/sqlite"
	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/infra/metrics"
	red "codecraft-ai/internal/infra/redis"
	"codecraft-ai/internal/infra/sched"
	"codecraft-ai/internal/infra/security"
	"codecraft-ai/internal/infra/web"
	"codecraft-ai/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, echo provider)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, config.RoleServer, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, "server")
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Encryption ----
	var enc *security.EncryptionService
	if cfg.Security.EncryptionKey != "" {
		var err error
		if enc, err = security.NewEncryptionService(cfg.Security.EncryptionKey); err != nil {
			return fmt.Errorf("encryption: %w", err)
		}
	}

	// ---- Redis (optional) ----
	var (
		redisClient *red.Client
		limiter     adapter.RateLimiter
		locker      adapter.Locker
	)
	if cfg.Redis.URL != "" {
		var err error
		if redisClient, err = red.NewClient(ctx, &cfg.Redis); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)
	} else {
		logger.Info().Msg("redis not configured; rate limiting, generation lock and log cache disabled")
	}

	g, ctx := errgroup.WithContext(ctx)

	// ---- Storage ----
	var (
		logs repository.LogRepository
		tm   repository.TransactionManager
	)
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Database.URL)
		if err != nil {
			return err
		}
		logs, tm = sqlite.NewLogRepo(db), sqlite.NewTxManager(db)
		if enc != nil {
			logger.Warn().Msg("security.encryption_key is ignored by the sqlite driver")
		}
	default:
		pool, err := pg.NewPgxPool(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logs, tm = pg.NewLogRepo(pool, enc), pg.NewTxManager(pool)
		if redisClient != nil {
			logs = pg.NewLogRepoCacheDecorator(logs, redisClient, enc, cfg.Redis.TTL, logger)
		}
		g.Go(func() error {
			pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)
			return nil
		})
	}

	// ---- AI ----
	ai, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	models, err := ai.ListModels(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list ai models")
	}
	logger.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.DefaultModel).Strs("models", models).Msg("ai provider ready")

	// ---- Use cases ----
	genUC := usecase.NewGenerationUseCase(ai, aiAdapters.NewTokenCounter(logger), limiter, locker, usecase.GenerationOptions{
		Model:              cfg.AI.DefaultModel,
		MaxOutputTokens:    cfg.AI.MaxOutputTokens,
		HistoryTokenBudget: cfg.AI.HistoryTokenBudget,
		RateLimitPerMinute: cfg.AI.RateLimitPerMinute,
		SingleFlight:       cfg.AI.SingleFlight,
		LockTTL:            cfg.AI.GenerationLockTTL,
		LogPrompts:         cfg.Runtime.Dev,
	}, logger)
	logUC := usecase.NewLogUseCase(logs, tm, logger)

	// ---- HTTP ----
	authMgr := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	handler := api.NewRouter(api.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, apiv1.NewServer(genUC, logUC, logger), authMgr, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutdown requested")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})

	// ---- Retention worker ----
	retention := sched.NewRetentionWorker(cfg.Storage.RetentionInterval, time.Duration(cfg.Storage.RetentionDays)*24*time.Hour, logUC, logger)
	g.Go(func() error { return retention.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newGenerator builds the provider adapters and routes models between them.
func newGenerator(ctx context.Context, cfg *config.Config) (adapter.CodeGenerator, error) {
	byProvider := map[string]adapter.CodeGenerator{}
	if cfg.AI.GeminiKey != "" {
		gem, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, defaultFor(cfg, "gemini", "gemini-2.5-pro"), cfg.AI.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("gemini adapter: %w", err)
		}
		byProvider["gemini"] = gem
	}
	if cfg.AI.OpenAIKey != "" {
		oai, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL, defaultFor(cfg, "openai", "gpt-4o-mini"), cfg.AI.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("openai adapter: %w", err)
		}
		byProvider["openai"] = oai
	}
	if cfg.AI.Provider == "echo" {
		byProvider["echo"] = aiAdapters.NewEchoAdapter()
	}
	if byProvider[cfg.AI.Provider] == nil {
		return nil, fmt.Errorf("ai provider %q is not configured", cfg.AI.Provider)
	}
	multi := aiAdapters.NewMultiAIAdapter(cfg.AI.Provider, byProvider, cfg.AI.ModelProviders)
	return aiAdapters.NewLimitedAI(multi, cfg.AI.ConcurrentLimit), nil
}

func defaultFor(cfg *config.Config, provider, fallback string) string {
	if cfg.AI.Provider == provider {
		return cfg.AI.DefaultModel
	}
	return fallback
}
