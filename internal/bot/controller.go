package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/garyellow/komida-linebot-go/internal/classifier"
	"github.com/garyellow/komida-linebot-go/internal/ctxutil"
	domerrors "github.com/garyellow/komida-linebot-go/internal/errors"
	"github.com/garyellow/komida-linebot-go/internal/formatter"
	"github.com/garyellow/komida-linebot-go/internal/logger"
	"github.com/garyellow/komida-linebot-go/internal/menu"
	"github.com/garyellow/komida-linebot-go/internal/metrics"
	"github.com/garyellow/komida-linebot-go/internal/sentry"
)

// Fixed reply texts.
const (
	Banner       = "*LUNCH!*"
	fallbackText = "_COMPUTER SAYS NO._ I'm sorry, no menu has been found."
	errorText    = "I'm sorry, I can't tell you the menu. Error status: %s"
)

var lunchPattern = regexp.MustCompile(`^l+u+n+c+h+!+$`)

// Config holds the collaborators of a Controller.
type Config struct {
	BotName        string
	BotUserID      string // Platform user ID of the bot, empty when unknown
	IconURL        string
	PublicPrefixes []string
	Vocabulary     menu.Vocabulary
	Clock          classifier.Clock // nil uses time.Now

	Menus     MenuFetcher
	Refresher Refresher // nil skips the refresh step
	Transport Transport
	Chooser   Chooser // nil uses a system-seeded chooser
	Limiter   Limiter // optional per-chat limit

	Logger  *logger.Logger
	Metrics *metrics.Metrics // optional
}

// Controller answers menu requests.
type Controller struct {
	botName        string
	botUserID      string
	publicPrefixes []string
	sender         Sender
	fallbackLinks  []string

	classifier *classifier.Classifier
	formatter  *formatter.Formatter
	menus      MenuFetcher
	refresher  Refresher
	transport  Transport
	chooser    Chooser
	limiter    Limiter
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// New validates cfg and builds a Controller.
func New(cfg Config) (*Controller, error) {
	var errs []error
	if strings.TrimSpace(cfg.BotName) == "" {
		errs = append(errs, errors.New("bot name is required"))
	}
	if cfg.Menus == nil {
		errs = append(errs, errors.New("menu fetcher is required"))
	}
	if cfg.Transport == nil {
		errs = append(errs, errors.New("transport is required"))
	}
	if cfg.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}

	chooser := cfg.Chooser
	if chooser == nil {
		chooser = NewSystemChooser()
	}

	return &Controller{
		botName:        classifier.Normalize(cfg.BotName),
		botUserID:      cfg.BotUserID,
		publicPrefixes: cfg.PublicPrefixes,
		sender:         Sender{Name: cfg.BotName, IconURL: cfg.IconURL},
		fallbackLinks:  cfg.Vocabulary.FallbackLinks,
		classifier:     classifier.New(cfg.Vocabulary, cfg.Clock),
		formatter:      formatter.New(cfg.Vocabulary),
		menus:          cfg.Menus,
		refresher:      cfg.Refresher,
		transport:      cfg.Transport,
		chooser:        chooser,
		limiter:        cfg.Limiter,
		logger:         cfg.Logger.WithModule("bot"),
		metrics:        cfg.Metrics,
	}, nil
}

// flow tracks the reply token of one message. The first send consumes it,
// later sends go out without one.
type flow struct {
	channel    string
	replyToken string
}

func (c *Controller) send(ctx context.Context, f *flow, out Outgoing) Ack {
	out.Channel = f.channel
	out.ReplyToken = f.replyToken
	out.Sender = c.sender
	f.replyToken = ""
	return c.transport.Send(ctx, out)
}

// HandleMessage runs one message through the bot. It never fails; problems
// are logged and, where possible, reported back to the chat.
func (c *Controller) HandleMessage(ctx context.Context, msg Message) Outcome {
	if c.shouldIgnore(msg) {
		return OutcomeIgnored
	}

	text := classifier.Normalize(msg.Text)
	if c.isPublic(msg.Channel) && !c.isAddressed(text, msg.Mentioned) {
		return OutcomeIgnored
	}

	log := c.logger.WithFields(map[string]any{
		"chat_id": msg.Channel,
		"user_id": msg.Username,
	})
	if c.limiter != nil && !c.limiter.Allow(msg.Channel) {
		log.Debug("Chat rate limit exceeded; dropping message")
		return OutcomeThrottled
	}

	campuses := c.classifier.ExtractCampuses(text)
	dates := c.classifier.ExtractDates(text)
	log.WithField("campuses", campuses).WithField("dates", dates).Debug("Menu requested")

	f := &flow{channel: msg.Channel, replyToken: msg.ReplyToken}

	result, err := c.menus.FetchMenu(ctx, campuses, dates)
	switch {
	case err != nil:
		c.recordLookup(metrics.LookupError)
		log.WithError(err).Warn("Menu lookup failed, trying a refresh")
		sentry.Capture(ctx, err, map[string]string{"stage": "lookup"})
		result = c.recoverMenu(ctx, f, log, campuses, dates)
	case result.IsEmpty():
		result = c.recoverMenu(ctx, f, log, campuses, dates)
	default:
		c.recordLookup(metrics.LookupHit)
	}

	if result != nil && !result.IsEmpty() {
		ack := c.send(ctx, f, Outgoing{Banner: Banner, Cards: c.formatter.BuildCards(result)})
		if !ack.OK {
			c.notifyError(ctx, f, ack.Error)
			return OutcomeFailed
		}
		return OutcomeReplied
	}

	link := c.chooser.Choose(c.fallbackLinks)
	ack := c.send(ctx, f, Outgoing{Text: fallbackText + "\n" + link})
	if !ack.OK {
		c.notifyError(ctx, f, ack.Error)
		return OutcomeFailed
	}
	return OutcomeFallback
}

// recoverMenu sends the interim notice, refreshes the store and looks up again.
// A failed notice is reported to the chat; the refresh still runs.
func (c *Controller) recoverMenu(ctx context.Context, f *flow, log *logger.Logger, campuses []menu.Campus, dates []menu.Date) *menu.Result {
	if ack := c.send(ctx, f, Outgoing{Text: formatter.MissingNotice(campuses, dates)}); !ack.OK {
		c.notifyError(ctx, f, ack.Error)
	}

	if c.refresher != nil {
		if err := c.refresher.Refresh(ctx); err != nil {
			log.WithError(err).Warn("Menu refresh failed")
			if !domerrors.IsNotFound(err) {
				sentry.Capture(ctx, err, map[string]string{"stage": "refresh"})
			}
		}
	}

	result, err := c.menus.FetchMenu(ctx, campuses, dates)
	if err != nil {
		c.recordLookup(metrics.LookupError)
		log.WithError(err).Error("Menu lookup after refresh failed")
		return nil
	}
	if result.IsEmpty() {
		c.recordLookup(metrics.LookupMiss)
		log.Info("No menu found after refresh")
		return result
	}
	c.recordLookup(metrics.LookupRecovered)
	return result
}

// notifyError reports a failed send to the chat once.
func (c *Controller) notifyError(ctx context.Context, f *flow, reason string) {
	log := c.logger.WithField("chat_id", f.channel)
	if id, ok := ctxutil.GetRequestID(ctx); ok {
		log = log.WithRequestID(id)
	}
	log.Errorf("Failed to post: %s", reason)

	ack := c.send(ctx, f, Outgoing{Text: fmt.Sprintf(errorText, reason)})
	if !ack.OK {
		log.WithField("reason", ack.Error).Error("Error notification not delivered")
		sentry.Capture(ctx, domerrors.NewTransportError(f.channel, ack.Error), nil)
	}
}

// shouldIgnore drops empty messages, messages from other bots and the bot's
// own messages, matched by platform user ID or by display name.
func (c *Controller) shouldIgnore(msg Message) bool {
	return msg.Text == "" ||
		strings.Contains(msg.Subtype, "bot") ||
		msg.Username == c.sender.Name ||
		(c.botUserID != "" && msg.Username == c.botUserID)
}

func (c *Controller) isPublic(channel string) bool {
	for _, p := range c.publicPrefixes {
		if p != "" && strings.HasPrefix(channel, p) {
			return true
		}
	}
	return false
}

func (c *Controller) isAddressed(text string, mentioned bool) bool {
	return mentioned || strings.Contains(text, c.botName) || lunchPattern.MatchString(text)
}

func (c *Controller) recordLookup(result string) {
	if c.metrics != nil {
		c.metrics.RecordLookup(result)
	}
}
