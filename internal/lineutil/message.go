package lineutil

import (
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/komida-linebot-go/internal/menu"
)

// NewSender returns the display identity for outgoing messages, or nil when
// name is empty. LINE requires an https icon; an empty icon keeps the
// channel default.
func NewSender(name, iconURL string) *messaging_api.Sender {
	if name == "" {
		return nil
	}
	return &messaging_api.Sender{
		Name:    TruncateRunes(name, 20),
		IconUrl: iconURL,
	}
}

// NewTextMessage creates a text message, truncated to the LINE limit.
func NewTextMessage(text string, sender *messaging_api.Sender) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text:   TruncateRunes(text, MaxTextMessageLength),
		Sender: sender,
	}
}

// NewFlexMessage creates a flex message with the given alt text and flex container.
func NewFlexMessage(altText string, contents messaging_api.FlexContainerInterface, sender *messaging_api.Sender) *messaging_api.FlexMessage {
	return &messaging_api.FlexMessage{
		AltText:  TruncateRunes(altText, MaxAltTextLength),
		Contents: contents,
		Sender:   sender,
	}
}

// NewCardBubble renders one menu card: a header strip in the card colour
// holding the bold title, and the wrapped card text as body.
func NewCardBubble(card menu.Card) *messaging_api.FlexBubble {
	color := card.Color
	if color == "" {
		color = ColorHeaderBg
	}

	bubble := &messaging_api.FlexBubble{
		Header: section(color, wrappedText(card.Title, titleStyle)),
	}
	if card.Text != "" {
		bubble.Body = section("", wrappedText(card.Text, bodyStyle))
	}
	return bubble
}

// CardsToMessages turns a banner and cards into reply messages: a text
// message with the banner (if any) followed by carousels of at most
// MaxBubblesPerCarousel bubbles. The result never exceeds
// MaxMessagesPerCall messages; surplus cards are dropped.
func CardsToMessages(banner string, cards []menu.Card, sender *messaging_api.Sender) []messaging_api.MessageInterface {
	var messages []messaging_api.MessageInterface
	if banner != "" {
		messages = append(messages, NewTextMessage(banner, sender))
	}

	for i := 0; i < len(cards) && len(messages) < MaxMessagesPerCall; i += MaxBubblesPerCarousel {
		end := min(i+MaxBubblesPerCarousel, len(cards))

		bubbles := make([]messaging_api.FlexBubble, 0, end-i)
		for _, card := range cards[i:end] {
			bubbles = append(bubbles, *NewCardBubble(card))
		}

		altText := cards[i].Title
		if banner != "" {
			altText = banner + " " + altText
		}
		if len(cards) > MaxBubblesPerCarousel {
			altText = fmt.Sprintf("%s (%d-%d)", altText, i+1, end)
		}

		messages = append(messages, NewFlexMessage(altText, &messaging_api.FlexCarousel{Contents: bubbles}, sender))
	}

	return messages
}
