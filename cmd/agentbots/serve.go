package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/agentbots/internal/botmanager"
	"github.com/kitbuilder587/agentbots/internal/cache/memory"
	"github.com/kitbuilder587/agentbots/internal/config"
	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/httpapi"
	"github.com/kitbuilder587/agentbots/internal/llm/openai"
	"github.com/kitbuilder587/agentbots/internal/metrics"
	"github.com/kitbuilder587/agentbots/internal/ratelimit"
	"github.com/kitbuilder587/agentbots/internal/repository/postgres"
	"github.com/kitbuilder587/agentbots/internal/service"
	"github.com/kitbuilder587/agentbots/internal/telegram"
)

const shutdownTimeout = 15 * time.Second

var _ botmanager.Handle = (*telegram.Bot)(nil)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot management API and webhook endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(cfg.Database.URL, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	db, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute})
	defer limiter.Stop()

	seen := memory.NewWithContext[struct{}](ctx, time.Minute)
	defer seen.Stop()

	llmFactory := openai.NewFactory(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, logger.Named("llm"), m)

	memoryStore := service.NewMemoryStore(postgres.NewChatUserRepo(db), logger.Named("memory"))

	tgFactory := telegram.NewFactory(telegram.Config{
		APIEndpoint: cfg.Telegram.APIEndpoint,
		Timeout:     cfg.Telegram.Timeout,
	}, memoryStore, llmFactory, limiter, logger.Named("telegram"), m)

	manager := botmanager.New(
		postgres.NewBotRepo(db),
		botmanager.HandleFactoryFunc(func(c *domain.BotConfig) (botmanager.Handle, error) {
			bot, err := tgFactory.New(c)
			if err != nil {
				return nil, err
			}
			return bot, nil
		}),
		cfg.Telegram.PublicURL,
		logger.Named("botmanager"),
		m,
	)

	if err := manager.Reconcile(ctx); err != nil {
		// Bots that failed to load answer 404 until started again.
		logger.Warn("some bots could not be restored", zap.Error(err))
	}

	api := httpapi.NewServer(httpapi.Config{
		AdminAPIKey:    cfg.HTTP.AdminAPIKey,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		DedupeTTL:      cfg.Dedupe.TTL,
	}, manager, llmFactory, db, seen, logger.Named("http"), m)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("public_url", cfg.Telegram.PublicURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
