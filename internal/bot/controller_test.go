package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/garyellow/komida-linebot-go/internal/errors"
	"github.com/garyellow/komida-linebot-go/internal/formatter"
	"github.com/garyellow/komida-linebot-go/internal/logger"
	"github.com/garyellow/komida-linebot-go/internal/menu"
	"github.com/garyellow/komida-linebot-go/internal/metrics"
)

// Wednesday.
var fixedNow = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.Local)

var today = menu.DateOf(fixedNow)

type fetchCall struct {
	campuses []menu.Campus
	dates    []menu.Date
}

// fakeMenus answers lookups from a queue; the last response repeats.
type fakeMenus struct {
	mu        sync.Mutex
	responses []fetchResponse
	calls     []fetchCall
}

type fetchResponse struct {
	result *menu.Result
	err    error
}

func (f *fakeMenus) FetchMenu(_ context.Context, campuses []menu.Campus, dates []menu.Date) (*menu.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{campuses: campuses, dates: dates})
	if len(f.responses) == 0 {
		return menu.NewResult(), nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp.result, resp.err
}

type fakeTransport struct {
	mu   sync.Mutex
	acks []Ack // per send, missing entries are OK
	sent []Outgoing
}

func (f *fakeTransport) Send(_ context.Context, msg Outgoing) Ack {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.sent)
	f.sent = append(f.sent, msg)
	if i < len(f.acks) {
		return f.acks[i]
	}
	return Ack{OK: true}
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls++
	return f.err
}

type firstChooser struct{}

func (firstChooser) Choose(options []string) string { return options[0] }

func entryResult(key menu.Key) *menu.Result {
	r := menu.NewResult()
	r.Put(key, menu.NewEntry(
		menu.Item{Category: "soup", Description: "Pumpkin soup", PriceStudent: 0.8, PriceStaff: 1.2},
		menu.Item{Category: "meat", Description: "Chicken curry", PriceStudent: 3.8, PriceStaff: 5.1},
	))
	return r
}

func newTestController(t *testing.T, menus *fakeMenus, transport *fakeTransport, refresher Refresher, m *metrics.Metrics) *Controller {
	t.Helper()
	c, err := New(Config{
		BotName:        "komidabot",
		IconURL:        "https://example.com/icon.png",
		PublicPrefixes: []string{"C", "R"},
		Vocabulary:     menu.DefaultVocabulary(),
		Clock:          func() time.Time { return fixedNow },
		Menus:          menus,
		Refresher:      refresher,
		Transport:      transport,
		Chooser:        firstChooser{},
		Logger:         logger.NewWithWriter("error", io.Discard),
		Metrics:        m,
	})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot name")
	assert.Contains(t, err.Error(), "menu fetcher")
	assert.Contains(t, err.Error(), "transport")
}

func TestHandleMessage_PublicLunch(t *testing.T) {
	t.Parallel()

	key := menu.Key{Date: today, Campus: menu.CampusMiddelheim}
	menus := &fakeMenus{responses: []fetchResponse{{result: entryResult(key)}}}
	transport := &fakeTransport{}
	c := newTestController(t, menus, transport, &fakeRefresher{}, nil)

	outcome := c.HandleMessage(context.Background(), Message{
		Text: "LUNCH!", Channel: "C100", Username: "U1", ReplyToken: "rt-1",
	})

	assert.Equal(t, OutcomeReplied, outcome)
	require.Len(t, menus.calls, 1)
	assert.Equal(t, []menu.Campus{menu.CampusMiddelheim}, menus.calls[0].campuses)
	assert.Equal(t, []menu.Date{today}, menus.calls[0].dates)

	require.Len(t, transport.sent, 1)
	out := transport.sent[0]
	assert.Equal(t, "C100", out.Channel)
	assert.Equal(t, "rt-1", out.ReplyToken)
	assert.Equal(t, Banner, out.Banner)
	assert.Equal(t, Sender{Name: "komidabot", IconURL: "https://example.com/icon.png"}, out.Sender)
	require.Len(t, out.Cards, 1)
	assert.Equal(t, formatter.Title(key), out.Cards[0].Title)
	assert.Equal(t, menu.ColorDanger, out.Cards[0].Color)
	assert.Contains(t, out.Cards[0].Text, "Pumpkin soup (€0.80 / €1.20)")
}

func TestHandleMessage_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		campuses []menu.Campus
		dates    []menu.Date
	}{
		{
			name:     "named campus tomorrow",
			text:     "komidabot cde tomorrow",
			campuses: []menu.Campus{menu.CampusDrieEiken},
			dates:    []menu.Date{today.AddDays(1)},
		},
		{
			name:     "weekday earlier this week",
			text:     "komidabot monday groenenborger",
			campuses: []menu.Campus{menu.CampusGroenenborger},
			dates:    []menu.Date{today.AddDays(-2)},
		},
		{
			name:     "several campuses and days",
			text:     "komidabot stad and middelheim today and friday",
			campuses: []menu.Campus{menu.CampusMiddelheim, menu.CampusStad},
			dates:    []menu.Date{today, today.AddDays(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			menus := &fakeMenus{responses: []fetchResponse{{
				result: entryResult(menu.Key{Date: tt.dates[0], Campus: tt.campuses[0]}),
			}}}
			c := newTestController(t, menus, &fakeTransport{}, nil, nil)

			c.HandleMessage(context.Background(), Message{Text: tt.text, Channel: "C9", Username: "U1"})

			require.Len(t, menus.calls, 1)
			assert.Equal(t, tt.campuses, menus.calls[0].campuses)
			assert.Equal(t, tt.dates, menus.calls[0].dates)
		})
	}
}

func TestHandleMessage_Ignored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
	}{
		{"bot subtype", Message{Text: "komidabot", Channel: "U1", Subtype: "bot"}},
		{"bot_message subtype", Message{Text: "komidabot", Channel: "U1", Subtype: "bot_message"}},
		{"own message", Message{Text: "komidabot", Channel: "U1", Username: "komidabot"}},
		{"no text", Message{Channel: "U1", Username: "U1"}},
		{"public without mention", Message{Text: "what's for lunch", Channel: "C1", Username: "U1"}},
		{"room without mention", Message{Text: "lunch! later", Channel: "R1", Username: "U1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			menus := &fakeMenus{}
			transport := &fakeTransport{}
			c := newTestController(t, menus, transport, &fakeRefresher{}, nil)

			assert.Equal(t, OutcomeIgnored, c.HandleMessage(context.Background(), tt.msg))
			assert.Empty(t, menus.calls)
			assert.Empty(t, transport.sent)
		})
	}
}

func TestHandleMessage_Addressed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
	}{
		{"direct message", Message{Text: "cde", Channel: "U1", Username: "U1"}},
		{"platform mention", Message{Text: "cde please", Channel: "C1", Username: "U1", Mentioned: true}},
		{"name in text", Message{Text: "KomidaBot cde", Channel: "C1", Username: "U1"}},
		{"stretched lunch", Message{Text: "LLuuunnch!!!", Channel: "R1", Username: "U1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			menus := &fakeMenus{}
			c := newTestController(t, menus, &fakeTransport{}, nil, nil)

			assert.NotEqual(t, OutcomeIgnored, c.HandleMessage(context.Background(), tt.msg))
			assert.NotEmpty(t, menus.calls)
		})
	}
}

func TestHandleMessage_RecoveredAfterRefresh(t *testing.T) {
	t.Parallel()

	key := menu.Key{Date: today, Campus: menu.CampusMiddelheim}
	menus := &fakeMenus{responses: []fetchResponse{
		{result: menu.NewResult()},
		{result: entryResult(key)},
	}}
	transport := &fakeTransport{}
	refresher := &fakeRefresher{}
	m := metrics.New(prometheus.NewRegistry())
	c := newTestController(t, menus, transport, refresher, m)

	outcome := c.HandleMessage(context.Background(), Message{
		Text: "lunch!", Channel: "C1", Username: "U1", ReplyToken: "rt",
	})

	assert.Equal(t, OutcomeReplied, outcome)
	assert.Equal(t, 1, refresher.calls)
	assert.Len(t, menus.calls, 2)

	require.Len(t, transport.sent, 2)
	notice := transport.sent[0]
	assert.Equal(t, "rt", notice.ReplyToken)
	assert.Equal(t, formatter.MissingNotice([]menu.Campus{menu.CampusMiddelheim}, []menu.Date{today}), notice.Text)

	reply := transport.sent[1]
	assert.Empty(t, reply.ReplyToken, "reply token is single use")
	assert.Equal(t, Banner, reply.Banner)
	assert.Len(t, reply.Cards, 1)

	assert.InDelta(t, 1, testutil.ToFloat64(m.MenuLookupsTotal.WithLabelValues(metrics.LookupRecovered)), 0)
}

func TestHandleMessage_Fallback(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	refresher := &fakeRefresher{err: domerrors.NewRefreshError("snapshot", domerrors.ErrNotFound)}
	c := newTestController(t, &fakeMenus{}, transport, refresher, nil)

	outcome := c.HandleMessage(context.Background(), Message{Text: "cst", Channel: "U1", Username: "U1"})

	assert.Equal(t, OutcomeFallback, outcome)
	assert.Equal(t, 1, refresher.calls)
	require.Len(t, transport.sent, 2)
	last := transport.sent[1]
	assert.Empty(t, last.Cards)
	assert.Equal(t,
		"_COMPUTER SAYS NO._ I'm sorry, no menu has been found.\n"+menu.DefaultVocabulary().FallbackLinks[0],
		last.Text)
}

func TestHandleMessage_StorageErrorRecovers(t *testing.T) {
	t.Parallel()

	key := menu.Key{Date: today, Campus: menu.CampusStad}
	menus := &fakeMenus{responses: []fetchResponse{
		{err: domerrors.NewStorageError("fetch menu", errors.New("database is locked"))},
		{result: entryResult(key)},
	}}
	transport := &fakeTransport{}
	c := newTestController(t, menus, transport, &fakeRefresher{}, nil)

	outcome := c.HandleMessage(context.Background(), Message{Text: "city", Channel: "U1", Username: "U1"})

	assert.Equal(t, OutcomeReplied, outcome)
	require.Len(t, transport.sent, 2)
	assert.Equal(t, Banner, transport.sent[1].Banner)
}

func TestHandleMessage_SecondLookupErrorFallsBack(t *testing.T) {
	t.Parallel()

	menus := &fakeMenus{responses: []fetchResponse{
		{result: menu.NewResult()},
		{err: domerrors.NewStorageError("fetch menu", errors.New("disk I/O error"))},
	}}
	transport := &fakeTransport{}
	c := newTestController(t, menus, transport, &fakeRefresher{}, nil)

	outcome := c.HandleMessage(context.Background(), Message{Text: "cde", Channel: "U1", Username: "U1"})

	assert.Equal(t, OutcomeFallback, outcome)
	require.Len(t, transport.sent, 2)
	assert.True(t, strings.HasPrefix(transport.sent[1].Text, "_COMPUTER SAYS NO._"))
}

func TestHandleMessage_IgnoresOwnUserID(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	c, err := New(Config{
		BotName:    "komidabot",
		BotUserID:  "Ubot",
		Vocabulary: menu.DefaultVocabulary(),
		Clock:      func() time.Time { return fixedNow },
		Menus:      &fakeMenus{},
		Transport:  transport,
		Chooser:    firstChooser{},
		Logger:     logger.NewWithWriter("error", io.Discard),
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeIgnored, c.HandleMessage(context.Background(), Message{Text: "lunch!", Channel: "Cgroup", Username: "Ubot"}))
	assert.Empty(t, transport.sent)

	outcome := c.HandleMessage(context.Background(), Message{Text: "lunch!", Channel: "U1", Username: "U1"})
	assert.Equal(t, OutcomeFallback, outcome)
}

func TestHandleMessage_InterimFailureNotifiesAndContinues(t *testing.T) {
	t.Parallel()

	key := menu.Key{Date: today, Campus: menu.CampusMiddelheim}
	menus := &fakeMenus{responses: []fetchResponse{
		{result: menu.NewResult()},
		{result: entryResult(key)},
	}}
	transport := &fakeTransport{acks: []Ack{{OK: false, Error: "invalid_reply_token"}}}
	refresher := &fakeRefresher{}
	c := newTestController(t, menus, transport, refresher, nil)

	outcome := c.HandleMessage(context.Background(), Message{Text: "cmi", Channel: "U1", Username: "U1", ReplyToken: "rt"})

	assert.Equal(t, OutcomeReplied, outcome)
	require.Len(t, transport.sent, 3)
	assert.Contains(t, transport.sent[0].Text, "Let me see if I can find it online")
	assert.Equal(t, "I'm sorry, I can't tell you the menu. Error status: invalid_reply_token", transport.sent[1].Text)
	assert.Equal(t, Banner, transport.sent[2].Banner)
	assert.Empty(t, transport.sent[2].ReplyToken)
	assert.Equal(t, 1, refresher.calls)
}

func TestHandleMessage_SendFailureNotifiesOnce(t *testing.T) {
	t.Parallel()

	key := menu.Key{Date: today, Campus: menu.CampusMiddelheim}
	tests := []struct {
		name string
		acks []Ack
	}{
		{"notification delivered", []Ack{{OK: false, Error: "channel_not_found"}}},
		{"notification also fails", []Ack{{OK: false, Error: "channel_not_found"}, {OK: false, Error: "still broken"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			menus := &fakeMenus{responses: []fetchResponse{{result: entryResult(key)}}}
			transport := &fakeTransport{acks: tt.acks}
			c := newTestController(t, menus, transport, nil, nil)

			outcome := c.HandleMessage(context.Background(), Message{Text: "komidabot", Channel: "C1", Username: "U1"})

			assert.Equal(t, OutcomeFailed, outcome)
			require.Len(t, transport.sent, 2, "exactly one error notification")
			assert.Equal(t,
				"I'm sorry, I can't tell you the menu. Error status: channel_not_found",
				transport.sent[1].Text)
			assert.Equal(t, "C1", transport.sent[1].Channel)
		})
	}
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ignored", OutcomeIgnored.String())
	assert.Equal(t, "replied", OutcomeReplied.String())
	assert.Equal(t, "fallback", OutcomeFallback.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "throttled", OutcomeThrottled.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

type denyLimiter struct{ keys []string }

func (d *denyLimiter) Allow(key string) bool {
	d.keys = append(d.keys, key)
	return false
}

func TestHandleMessage_Throttled(t *testing.T) {
	t.Parallel()

	menus := &fakeMenus{}
	transport := &fakeTransport{}
	limiter := &denyLimiter{}
	c := newTestController(t, menus, transport, nil, nil)
	c.limiter = limiter

	// Unaddressed group chatter does not reach the limiter.
	assert.Equal(t, OutcomeIgnored, c.HandleMessage(context.Background(), Message{Text: "hi all", Channel: "C1", Username: "U1"}))
	assert.Empty(t, limiter.keys)

	assert.Equal(t, OutcomeThrottled, c.HandleMessage(context.Background(), Message{Text: "lunch!", Channel: "C1", Username: "U1"}))
	assert.Equal(t, []string{"C1"}, limiter.keys)
	assert.Empty(t, menus.calls)
	assert.Empty(t, transport.sent)
}
