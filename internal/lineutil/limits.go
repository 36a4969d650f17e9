package lineutil

// LINE API limits, counted in runes.
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength  = 5000 // Text message content
	MaxAltTextLength      = 400  // Flex message alt text
	MaxMessagesPerCall    = 5    // Messages in one reply or push request
	MaxBubblesPerCarousel = 10   // Bubbles rendered per carousel message
)
