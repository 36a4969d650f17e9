package webhook

import (
	"context"
	"io"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/komida-linebot-go/internal/bot"
	"github.com/garyellow/komida-linebot-go/internal/logger"
	"github.com/garyellow/komida-linebot-go/internal/menu"
	"github.com/garyellow/komida-linebot-go/internal/ratelimit"
)

func TestToMessage(t *testing.T) {
	selfMention := &webhook.Mention{
		Mentionees: []webhook.MentioneeInterface{
			webhook.UserMentionee{Index: 0, Length: 10, UserId: "U0", IsSelf: false},
			webhook.UserMentionee{Index: 11, Length: 10, IsSelf: true},
		},
	}

	tests := []struct {
		name  string
		event webhook.MessageEvent
		want  bot.Message
	}{
		{
			name: "personal text",
			event: webhook.MessageEvent{
				ReplyToken: "rt",
				Source:     webhook.UserSource{UserId: "U1"},
				Message:    webhook.TextMessageContent{Text: "lunch!"},
			},
			want: bot.Message{Text: "lunch!", Channel: "U1", Username: "U1", ReplyToken: "rt"},
		},
		{
			name: "group mention",
			event: webhook.MessageEvent{
				Source:  webhook.GroupSource{GroupId: "C1", UserId: "U2"},
				Message: webhook.TextMessageContent{Text: "@someone @komidabot cde", Mention: selfMention},
			},
			want: bot.Message{Text: "@someone @komidabot cde", Channel: "C1", Username: "U2", Mentioned: true},
		},
		{
			name: "room message without user",
			event: webhook.MessageEvent{
				Source:  webhook.RoomSource{RoomId: "R1"},
				Message: webhook.TextMessageContent{Text: "komidabot"},
			},
			want: bot.Message{Text: "komidabot", Channel: "R1"},
		},
		{
			name: "sticker has no text",
			event: webhook.MessageEvent{
				Source:  webhook.UserSource{UserId: "U1"},
				Message: webhook.StickerMessageContent{PackageId: "1", StickerId: "2"},
			},
			want: bot.Message{Channel: "U1", Username: "U1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToMessage(tt.event); got != tt.want {
				t.Errorf("ToMessage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsBotMentioned(t *testing.T) {
	other := webhook.TextMessageContent{
		Text: "@User hello",
		Mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
			webhook.UserMentionee{Index: 0, Length: 5, UserId: "U1234567890"},
		}},
	}
	if isBotMentioned(other) {
		t.Error("mention of another user must not count")
	}

	all := webhook.TextMessageContent{
		Text: "@All hello",
		Mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
			webhook.AllMentionee{Index: 0, Length: 4},
		}},
	}
	if isBotMentioned(all) {
		t.Error("@All must not count as a bot mention")
	}

	if isBotMentioned(webhook.TextMessageContent{Text: "plain"}) {
		t.Error("no mention expected")
	}
}

type stubMenus struct{}

func (stubMenus) FetchMenu(_ context.Context, campuses []menu.Campus, dates []menu.Date) (*menu.Result, error) {
	result := menu.NewResult()
	for _, d := range dates {
		for _, c := range campuses {
			result.Put(menu.Key{Date: d, Campus: c},
				menu.NewEntry(menu.Item{Category: "soup", Description: "Tomato soup", PriceStudent: 0.8, PriceStaff: 1.2}))
		}
	}
	return result, nil
}

func TestGroupLunchWithoutUserIDGetsReply(t *testing.T) {
	client := &fakeClient{}
	log := logger.NewWithWriter("error", io.Discard)
	controller, err := bot.New(bot.Config{
		BotName:        "komidabot",
		PublicPrefixes: []string{"C", "R"},
		Vocabulary:     menu.DefaultVocabulary(),
		Menus:          stubMenus{},
		Transport:      NewTransport(client, ratelimit.New(10, 10), log, nil),
		Logger:         log,
	})
	if err != nil {
		t.Fatalf("bot.New() failed: %v", err)
	}

	msg := ToMessage(webhook.MessageEvent{
		ReplyToken: "rt",
		Source:     webhook.GroupSource{GroupId: "Cgroup"},
		Message:    webhook.TextMessageContent{Text: "lunch!"},
	})
	if msg.Subtype != "" {
		t.Fatalf("Subtype = %q, want empty", msg.Subtype)
	}

	if outcome := controller.HandleMessage(context.Background(), msg); outcome != bot.OutcomeReplied {
		t.Fatalf("HandleMessage() = %v, want %v", outcome, bot.OutcomeReplied)
	}
	if len(client.replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(client.replies))
	}
	if client.replies[0].ReplyToken != "rt" {
		t.Errorf("ReplyToken = %q, want %q", client.replies[0].ReplyToken, "rt")
	}
}
