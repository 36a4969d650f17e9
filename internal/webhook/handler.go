// Package webhook adapts LINE to the bot: it verifies and parses webhook
// requests, turns message events into bot messages and sends replies
// through the Messaging API.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/komida-linebot-go/internal/bot"
	"github.com/garyellow/komida-linebot-go/internal/ctxutil"
	"github.com/garyellow/komida-linebot-go/internal/logger"
	"github.com/garyellow/komida-linebot-go/internal/metrics"
	"github.com/garyellow/komida-linebot-go/internal/sentry"
)

// MessageHandler processes one inbound message. *bot.Controller satisfies it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg bot.Message) bot.Outcome
}

// LoadingFunc shows the typing indicator in a personal chat.
type LoadingFunc func(chatID string) error

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	bot           MessageHandler
	showLoading   LoadingFunc
	logger        *logger.Logger
	metrics       *metrics.Metrics
	wg            sync.WaitGroup // Tracks async event processing

	webhookTimeout      time.Duration
	maxEventsPerWebhook int
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	ChannelSecret       string
	Bot                 MessageHandler
	ShowLoading         LoadingFunc // optional
	WebhookTimeout      time.Duration
	MaxEventsPerWebhook int
	Logger              *logger.Logger
	Metrics             *metrics.Metrics
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("channel secret is required")
	}
	if cfg.Bot == nil {
		return nil, errors.New("message handler is required")
	}
	if cfg.WebhookTimeout <= 0 || cfg.MaxEventsPerWebhook <= 0 {
		return nil, fmt.Errorf("invalid limits: timeout %v, max events %d", cfg.WebhookTimeout, cfg.MaxEventsPerWebhook)
	}

	return &Handler{
		channelSecret:       cfg.ChannelSecret,
		bot:                 cfg.Bot,
		showLoading:         cfg.ShowLoading,
		logger:              cfg.Logger.WithModule("webhook"),
		metrics:             cfg.Metrics,
		webhookTimeout:      cfg.WebhookTimeout,
		maxEventsPerWebhook: cfg.MaxEventsPerWebhook,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE expects 200 OK before the events are handled.
	c.Status(http.StatusOK)

	if len(cb.Events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEventsPerWebhook]
	}

	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)
	base := sentry.Detach(c.Request.Context(), ctxutil.PreserveTracing(c.Request.Context()))

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()

		for _, event := range events {
			h.processEvent(base, event)
		}
	})
}

// processEvent handles a single event after the HTTP response is written.
func (h *Handler) processEvent(base context.Context, event webhook.EventInterface) {
	e, ok := event.(webhook.MessageEvent)
	if !ok {
		h.logger.WithField("event_type", fmt.Sprintf("%T", event)).Debug("Unsupported event type")
		return
	}

	start := time.Now()
	msg := ToMessage(e)

	ctx := ctxutil.WithChatID(base, msg.Channel)
	ctx = ctxutil.WithUserID(ctx, msg.Username)
	if e.WebhookEventId != "" {
		ctx = ctxutil.WithEventID(ctx, e.WebhookEventId)
		if _, ok := ctxutil.GetRequestID(ctx); !ok {
			ctx = ctxutil.WithRequestID(ctx, e.WebhookEventId)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, h.webhookTimeout)
	defer cancel()

	log := h.logger.WithField("chat_id", msg.Channel)
	if e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery {
		log = log.WithField("is_redelivery", true)
	}

	if h.showLoading != nil && msg.Text != "" && isPersonalChat(e.Source) {
		if err := h.showLoading(msg.Channel); err != nil {
			log.WithError(err).Warn("Failed to show loading animation")
		}
	}

	outcome := h.bot.HandleMessage(ctx, msg)
	h.record(outcome.String(), start)

	if outcome != bot.OutcomeIgnored {
		log.WithField("outcome", outcome.String()).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("Event processed")
	}
}

func (h *Handler) record(status string, start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordWebhook("message", status, time.Since(start).Seconds())
	}
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
