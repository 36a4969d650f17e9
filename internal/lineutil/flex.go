package lineutil

import (
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

const layoutVertical = messaging_api.FlexBoxLAYOUT("vertical")

// textStyle is the typography of one text component. Text is always wrapped.
type textStyle struct {
	size        string
	weight      messaging_api.FlexTextWEIGHT
	color       string
	lineSpacing string
}

var (
	titleStyle = textStyle{size: "md", weight: "bold", color: ColorHeaderTxt}
	bodyStyle  = textStyle{size: "sm", color: ColorText, lineSpacing: LineSpacingNormal}
)

func wrappedText(text string, s textStyle) *messaging_api.FlexText {
	return &messaging_api.FlexText{
		Text:        text,
		Size:        s.size,
		Weight:      s.weight,
		Color:       s.color,
		LineSpacing: s.lineSpacing,
		Wrap:        true,
	}
}

// section is a padded vertical box; background may be empty.
func section(background string, contents ...messaging_api.FlexComponentInterface) *messaging_api.FlexBox {
	return &messaging_api.FlexBox{
		Layout:          layoutVertical,
		Contents:        contents,
		Spacing:         SpacingS,
		PaddingAll:      SpacingL,
		BackgroundColor: background,
	}
}

// TruncateRunes cuts text to at most maxRunes runes, replacing the tail
// with "..." when there is room for it.
func TruncateRunes(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	keep, suffix := maxRunes, ""
	if maxRunes > 3 {
		keep, suffix = maxRunes-3, "..."
	}
	n := 0
	for i := range text {
		if n == keep {
			return text[:i] + suffix
		}
		n++
	}
	return text + suffix
}
