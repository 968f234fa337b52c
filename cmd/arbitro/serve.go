package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/config"
	logpkg "github.com/kailas-cloud/arbitro/internal/logger"
	"github.com/kailas-cloud/arbitro/internal/metrics"
	budgetrepo "github.com/kailas-cloud/arbitro/internal/repository/budget"
	chiTransport "github.com/kailas-cloud/arbitro/internal/transport/chi"
	"github.com/kailas-cloud/arbitro/internal/transport/fswatch"
	openaiChat "github.com/kailas-cloud/arbitro/internal/transport/openai"
	"github.com/kailas-cloud/arbitro/internal/transport/searchapi"
	"github.com/kailas-cloud/arbitro/internal/usecase/budget"
	chatuc "github.com/kailas-cloud/arbitro/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/arbitro/internal/usecase/health"
	"github.com/kailas-cloud/arbitro/internal/usecase/selection"
	usageuc "github.com/kailas-cloud/arbitro/internal/usecase/usage"
	"github.com/kailas-cloud/arbitro/internal/version"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is read from --config, or from config/<ENV>.yaml (ENV defaults
to local). ${VAR} and ${VAR:-default} references in the file are expanded
from the environment.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, env, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.HTTP.Port = port
			}
			return runServe(cmd.Context(), cfg, env)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Override http.port")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, env string) error {
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting arbitro API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Bool("chat_enabled", cfg.Chat.Enabled),
	)

	// Register locator metrics explicitly (no init())
	metrics.RegisterLocateMetrics()

	stack, err := buildLocator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	if cfg.Documents.Watch {
		if err := startWatcher(ctx, cfg.Documents.RootDir, stack.cache, logger); err != nil {
			return err
		}
	}

	// Pass nil interfaces (not typed nil pointers) for components that are not configured.
	var storePinger healthuc.StorePinger
	if stack.store != nil {
		storePinger = stack.store
	}
	var llmChecker healthuc.ProviderChecker
	var asker chiTransport.ChatAsker
	var budgetReader usageuc.BudgetReader
	if cfg.Chat.Enabled {
		var tokenBudget openaiChat.TokenBudget
		if tracker := buildBudget(ctx, cfg, stack, logger); tracker != nil {
			tokenBudget = tracker
			budgetReader = tracker
		}
		answerer := openaiChat.NewAnswerer(&openaiChat.Config{
			APIKey:       cfg.Chat.Provider.APIKey,
			BaseURL:      cfg.Chat.Provider.BaseURL,
			Model:        cfg.Chat.Provider.Model,
			SystemPrompt: cfg.Chat.SystemPrompt,
			MaxHistory:   cfg.Chat.MaxHistory,
			Temperature:  cfg.Chat.Provider.Temperature,
			Budget:       tokenBudget,
			Logger:       logger,
		})
		retriever := searchapi.New(searchapi.Config{
			URL:     cfg.Chat.SearchURL,
			TopK:    cfg.Chat.TopK,
			Timeout: time.Duration(cfg.Chat.SearchTimeoutSec) * time.Second,
			Logger:  logger,
		})
		chatSvc := chatuc.New(retriever, answerer, logger)
		if cfg.Chat.LocatePages {
			chatSvc = chatSvc.WithLocator(stack.locator, cfg.Chat.LocateConcurrency)
		}
		asker = chatSvc
		llmChecker = answerer
		logger.Info("Chat enabled",
			zap.String("model", cfg.Chat.Provider.Model),
			zap.String("search_url", cfg.Chat.SearchURL),
			zap.Bool("locate_pages", cfg.Chat.LocatePages),
		)
	}

	board := selection.NewBoard(
		stack.locator,
		time.Duration(cfg.Sessions.TTLSec)*time.Second,
		cfg.Sessions.MaxSessions,
		logger,
	)
	defer board.Close()

	healthSvc := healthuc.New(storePinger, llmChecker)
	usageSvc := usageuc.New(budgetReader)

	server := chiTransport.NewServer(stack.locator, stack.source, asker, board, healthSvc, usageSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// startWatcher invalidates cached pages of local PDFs as they change on disk.
func startWatcher(ctx context.Context, root string, cache pageCache, logger *zap.Logger) error {
	if cache == nil {
		logger.Info("Documents watch ignored: page cache disabled")
		return nil
	}
	w, err := fswatch.New(root, cache, logger)
	if err != nil {
		return fmt.Errorf("watch documents root: %w", err)
	}
	go func() {
		defer func() { _ = w.Close() }()
		w.Run(ctx)
	}()
	logger.Info("Watching documents root", zap.String("root", root))
	return nil
}

// buildBudget returns nil when no token limit is configured. Counters survive
// restarts only when the page cache lives in redis or valkey.
func buildBudget(ctx context.Context, cfg config.Config, stack *locatorStack, logger *zap.Logger) *budget.Tracker {
	b := cfg.Chat.Budget
	if !b.Enabled() {
		return nil
	}
	tracker := budget.NewTracker(cfg.Chat.Provider.Model, b.DailyTokenLimit, b.MonthlyTokenLimit,
		budget.Action(b.Action), logger)
	if stack.store != nil {
		tracker = tracker.WithStore(ctx, budgetrepo.New(stack.store, 48*time.Hour, 62*24*time.Hour))
	}
	logger.Info("Chat token budget enabled",
		zap.Int64("daily_limit", b.DailyTokenLimit),
		zap.Int64("monthly_limit", b.MonthlyTokenLimit),
		zap.String("action", b.Action),
		zap.Bool("persistent", stack.store != nil),
	)
	return tracker
}
