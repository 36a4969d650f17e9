// Package bot implements the message flow of the menu bot: filtering,
// classifying a request, looking up menus, recovering from a miss and
// replying through a chat transport.
package bot

import (
	"context"

	"github.com/garyellow/komida-linebot-go/internal/menu"
)

// Message is an inbound chat message in transport-neutral form.
type Message struct {
	Text       string
	Channel    string // Chat ID; public channels are recognised by prefix
	Username   string // Sender ID
	Subtype    string // "bot" for messages posted by other bots
	Mentioned  bool   // Platform-level mention of this bot
	ReplyToken string // Single-use token, empty when replies are not possible
}

// Sender is the display identity attached to every outgoing message.
type Sender struct {
	Name    string
	IconURL string
}

// Outgoing is one message to post. Either Text or Cards is set.
type Outgoing struct {
	Channel    string
	ReplyToken string
	Text       string
	Banner     string
	Cards      []menu.Card
	Sender     Sender
}

// Ack is the transport acknowledgement of a send.
type Ack struct {
	OK    bool
	Error string
}

// Outcome is the terminal state of HandleMessage.
type Outcome int

const (
	// OutcomeIgnored means nothing was sent.
	OutcomeIgnored Outcome = iota
	// OutcomeReplied means menu cards were delivered.
	OutcomeReplied
	// OutcomeFallback means the no-menu message was delivered.
	OutcomeFallback
	// OutcomeFailed means the final send was rejected.
	OutcomeFailed
	// OutcomeThrottled means the chat exceeded its rate limit.
	OutcomeThrottled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeReplied:
		return "replied"
	case OutcomeFallback:
		return "fallback"
	case OutcomeFailed:
		return "failed"
	case OutcomeThrottled:
		return "throttled"
	}
	return "unknown"
}

// Transport delivers outgoing messages.
type Transport interface {
	Send(ctx context.Context, msg Outgoing) Ack
}

// MenuFetcher reads menus for every (date, campus) pair.
type MenuFetcher interface {
	FetchMenu(ctx context.Context, campuses []menu.Campus, dates []menu.Date) (*menu.Result, error)
}

// Refresher tries to populate the menu store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Limiter admits or drops requests per key.
// *ratelimit.KeyedLimiter satisfies it.
type Limiter interface {
	Allow(key string) bool
}

// Chooser picks one of the given options.
type Chooser interface {
	Choose(options []string) string
}
