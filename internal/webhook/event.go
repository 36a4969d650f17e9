package webhook

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/komida-linebot-go/internal/bot"
)

// ToMessage converts a LINE message event. Non-text messages yield an empty
// Text, which the bot ignores.
func ToMessage(event webhook.MessageEvent) bot.Message {
	msg := bot.Message{
		Channel:    chatID(event.Source),
		Username:   userID(event.Source),
		ReplyToken: event.ReplyToken,
	}

	// LINE never delivers messages from other bots, so Subtype stays empty.
	// The user ID may still be missing in groups and rooms for users who
	// have not shared their profile.

	if text, ok := event.Message.(webhook.TextMessageContent); ok {
		msg.Text = text.Text
		msg.Mentioned = isBotMentioned(text)
	}
	return msg
}

// isBotMentioned checks if the bot is mentioned in a text message.
// It iterates through all mentionees and checks if any is a UserMentionee with IsSelf == true.
func isBotMentioned(textMsg webhook.TextMessageContent) bool {
	if textMsg.Mention == nil {
		return false
	}
	for _, mentionee := range textMsg.Mention.Mentionees {
		if userMentionee, ok := mentionee.(webhook.UserMentionee); ok && userMentionee.IsSelf {
			return true
		}
	}
	return false
}

// chatID returns user ID for personal chats, group ID for groups, room ID for rooms.
func chatID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

// userID returns the sender regardless of chat type.
func userID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

func isPersonalChat(source webhook.SourceInterface) bool {
	_, ok := source.(webhook.UserSource)
	return ok
}
