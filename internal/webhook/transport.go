package webhook

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/komida-linebot-go/internal/bot"
	"github.com/garyellow/komida-linebot-go/internal/lineutil"
	"github.com/garyellow/komida-linebot-go/internal/logger"
	"github.com/garyellow/komida-linebot-go/internal/metrics"
	"github.com/garyellow/komida-linebot-go/internal/ratelimit"
)

// MessagingClient is the part of the LINE Messaging API used for sending.
// *messaging_api.MessagingApiAPI satisfies it.
type MessagingClient interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
	PushMessage(req *messaging_api.PushMessageRequest, xLineRetryKey string) (*messaging_api.PushMessageResponse, error)
}

// Send kinds, used as metric labels.
const (
	kindReply = "reply"
	kindPush  = "push"
)

// Transport posts bot messages through LINE. A message with a reply token
// is sent as a reply, anything else is pushed to the chat.
type Transport struct {
	client  MessagingClient
	limiter *ratelimit.Limiter // Global limit on outbound API calls
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewTransport creates a LINE transport. limiter and m may be nil.
func NewTransport(client MessagingClient, limiter *ratelimit.Limiter, log *logger.Logger, m *metrics.Metrics) *Transport {
	return &Transport{
		client:  client,
		limiter: limiter,
		logger:  log.WithModule("transport"),
		metrics: m,
	}
}

// Send implements bot.Transport.
func (t *Transport) Send(ctx context.Context, out bot.Outgoing) bot.Ack {
	kind := kindPush
	if out.ReplyToken != "" {
		kind = kindReply
	}

	messages := buildMessages(out)
	if len(messages) == 0 {
		return t.fail(kind, errors.New("nothing to send"))
	}
	if out.ReplyToken == "" && out.Channel == "" {
		return t.fail(kind, errors.New("no reply token or chat ID"))
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if t.metrics != nil {
				t.metrics.RecordRateLimiterDrop("global")
			}
			return t.fail(kind, err)
		}
	}

	var err error
	if kind == kindReply {
		_, err = t.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
			ReplyToken: out.ReplyToken,
			Messages:   messages,
		})
	} else {
		_, err = t.client.PushMessage(&messaging_api.PushMessageRequest{
			To:       out.Channel,
			Messages: messages,
		}, uuid.NewString())
	}
	if err != nil {
		return t.fail(kind, err)
	}

	t.record(kind, "success")
	return bot.Ack{OK: true}
}

func (t *Transport) fail(kind string, err error) bot.Ack {
	t.record(kind, "error")
	t.logger.WithError(err).WithField("kind", kind).Debug("LINE send failed")
	return bot.Ack{OK: false, Error: err.Error()}
}

func (t *Transport) record(kind, status string) {
	if t.metrics != nil {
		t.metrics.RecordMessageSent(kind, status)
	}
}

func buildMessages(out bot.Outgoing) []messaging_api.MessageInterface {
	sender := lineutil.NewSender(out.Sender.Name, out.Sender.IconURL)
	if len(out.Cards) > 0 {
		return lineutil.CardsToMessages(out.Banner, out.Cards, sender)
	}
	if out.Text == "" {
		return nil
	}
	return []messaging_api.MessageInterface{lineutil.NewTextMessage(out.Text, sender)}
}
