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
	tele "codecraft-ai/internal/infra/adapters/telegram"
	"codecraft-ai/internal/infra/gateway"
	"codecraft-ai/internal/infra/i18n"
	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/infra/metrics"
	red "codecraft-ai/internal/infra/redis"
	"codecraft-ai/internal/infra/web"
	"codecraft-ai/internal/infra/worker"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	metricsAddr := flag.String("metrics-addr", ":9091", "address for /metrics; empty disables it")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, config.RoleBot, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, *metricsAddr, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("bot stopped")
	}
}

func run(cfg *config.Config, metricsAddr string, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, "bot")

	tr, err := i18n.Load(cfg.Bot.Lang)
	if err != nil {
		return err
	}

	var limiter adapter.RateLimiter
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		limiter = red.NewRateLimiter(rc)
	}

	bot, err := tele.NewRealTelegramBotAdapter(cfg.Bot.Token, logger)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if err := bot.SetMenuCommands(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to set menu commands")
	}

	authMgr := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	chats := tele.NewChats(func(tokens gateway.Tokens) adapter.BackendGateway {
		return gateway.NewClient(cfg.Client.BaseURL, tokens, logger)
	}, authMgr.TokenSource, logger)
	handler := tele.NewHandler(bot, chats, limiter, tr, cfg.Bot.EditInterval, logger)
	pool := worker.NewPool(cfg.Bot.Workers, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("backend", cfg.Client.BaseURL).Int("workers", cfg.Bot.Workers).Msg("telegram polling started")
		return bot.StartPolling(ctx, handler, pool)
	})

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	return g.Wait()
}
