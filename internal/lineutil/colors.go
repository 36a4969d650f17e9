// Package lineutil builds LINE messages for menu replies.
package lineutil

// Card layout metrics.
const (
	SpacingS          = "8px"
	SpacingL          = "16px"
	LineSpacingNormal = "6px"
)

// Card colours. Header colours come from the campus vocabulary; these
// cover the text and cards without a campus.
const (
	ColorText      = "#111111"
	ColorHeaderTxt = "#FFFFFF"
	ColorHeaderBg  = "#06C755" // LINE green
)
