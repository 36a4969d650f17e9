// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garyellow/komida-linebot-go/internal/bot"
	"github.com/garyellow/komida-linebot-go/internal/config"
	"github.com/garyellow/komida-linebot-go/internal/logger"
	"github.com/garyellow/komida-linebot-go/internal/menu"
	"github.com/garyellow/komida-linebot-go/internal/metrics"
	"github.com/garyellow/komida-linebot-go/internal/ratelimit"
	"github.com/garyellow/komida-linebot-go/internal/snapshot"
	"github.com/garyellow/komida-linebot-go/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	store          *menuStore
	snapshots      *snapshot.Manager // nil without R2
	chatLimiter    *ratelimit.KeyedLimiter
	webhookHandler *webhook.Handler
	server         *http.Server
	wg             sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken: cfg.BetterStackToken,
	})

	log = log.WithField("service", "komida-linebot-go")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls go through the ContextHandler too.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.Info("Better Stack logging enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	store, snapshots, refresher, err := openStore(ctx, cfg, log, m)
	if err != nil {
		return nil, err
	}

	client, err := messaging_api.NewMessagingApiAPI(cfg.LineChannelToken,
		messaging_api.WithHTTPClient(&http.Client{Timeout: config.LINEAPICall}))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}

	botUserID := ""
	if info, err := client.GetBotInfo(); err != nil {
		log.WithError(err).Warn("Failed to fetch bot info; own messages matched by name only")
	} else {
		botUserID = info.UserId
		log.WithField("bot_user_id", botUserID).Debug("Bot info loaded")
	}

	transport := webhook.NewTransport(client,
		ratelimit.New(cfg.Bot.GlobalRateRPS, cfg.Bot.GlobalRateRPS), log, m)

	chatLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "chat",
		Burst:         cfg.Bot.ChatRateBurst,
		RefillRate:    cfg.Bot.ChatRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	controller, err := bot.New(bot.Config{
		BotName:        cfg.Bot.Name,
		BotUserID:      botUserID,
		IconURL:        cfg.Bot.IconURL,
		PublicPrefixes: cfg.Bot.PublicChannelPrefixes,
		Vocabulary:     menu.DefaultVocabulary(),
		Menus:          store,
		Refresher:      refresher,
		Transport:      transport,
		Limiter:        chatLimiter,
		Logger:         log,
		Metrics:        m,
	})
	if err != nil {
		chatLimiter.Stop()
		store.Close()
		return nil, err
	}

	webhookHandler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: cfg.LineChannelSecret,
		Bot:           controller,
		ShowLoading: func(chatID string) error {
			// LINE accepts 5-60 seconds in steps of 5; a refresh may take most of it.
			_, err := client.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
				ChatId:         chatID,
				LoadingSeconds: 60,
			})
			return err
		},
		WebhookTimeout:      cfg.Bot.WebhookTimeout,
		MaxEventsPerWebhook: cfg.Bot.MaxEventsPerWebhook,
		Logger:              log,
		Metrics:             m,
	})
	if err != nil {
		chatLimiter.Stop()
		store.Close()
		return nil, fmt.Errorf("webhook: %w", err)
	}

	app := &Application{
		cfg:            cfg,
		logger:         log,
		metrics:        m,
		registry:       registry,
		store:          store,
		snapshots:      snapshots,
		chatLimiter:    chatLimiter,
		webhookHandler: webhookHandler,
	}

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// Run starts the server and background jobs and blocks until SIGINT or
// SIGTERM, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}

	a.logger.Info("Closing resources...")
	if a.snapshots != nil {
		a.snapshots.StopPolling()
	}
	a.chatLimiter.Stop()
	a.store.Close()

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}
