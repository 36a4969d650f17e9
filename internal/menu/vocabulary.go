package menu

// CampusInfo describes how a campus is recognised in text and shown on cards.
type CampusInfo struct {
	Code    Campus
	Aliases []string
	Color   string
}

// RelativeDay maps a keyword to a day offset from today.
type RelativeDay struct {
	Keyword string
	Offset  int
}

// Icons holds the emoji prefix of each displayed category.
type Icons struct {
	Soup       string
	Vegetarian string
	Meat       string
	Grill      string
	Pasta      string
}

// Vocabulary is the fixed set of tables used to classify requests and
// render replies. Treat values as read-only after construction.
type Vocabulary struct {
	Campuses      []CampusInfo
	DefaultCampus Campus
	RelativeDays  []RelativeDay
	// Weekdays lists weekday names starting with Monday.
	Weekdays      [7]string
	Icons         Icons
	FallbackLinks []string
}

// Card colours. The first three follow the chat palette names
// good, warning and danger.
const (
	ColorGood    = "#2EB886"
	ColorWarning = "#DAA038"
	ColorDanger  = "#A30200"
	ColorCity    = "#439FE0"
)

// DefaultVocabulary returns a fresh copy of the production tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Campuses: []CampusInfo{
			{Code: CampusDrieEiken, Aliases: []string{"cde", "drie eiken"}, Color: ColorGood},
			{Code: CampusGroenenborger, Aliases: []string{"cgb", "groenenborger"}, Color: ColorWarning},
			{Code: CampusMiddelheim, Aliases: []string{"cmi", "middelheim"}, Color: ColorDanger},
			{Code: CampusStad, Aliases: []string{"cst", "stad", "city"}, Color: ColorCity},
		},
		DefaultCampus: CampusMiddelheim,
		RelativeDays: []RelativeDay{
			{Keyword: "today", Offset: 0},
			{Keyword: "tomorrow", Offset: 1},
			{Keyword: "yesterday", Offset: -1},
		},
		Weekdays: [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
		Icons: Icons{
			Soup:       "🍵",
			Vegetarian: "🍅",
			Meat:       "🍗",
			Grill:      "🍖",
			Pasta:      "🍝",
		},
		FallbackLinks: []string{
			"https://giphy.com/gifs/monkey-laptop-baboon-xTiTnJ3BooiDs8dL7W",
			"https://giphy.com/gifs/office-space-jBBRs81dGWHIY",
			"https://giphy.com/gifs/computer-Zw133sEVc0WXK",
			"https://giphy.com/gifs/computer-D8kdCAJIoSQ6I",
			"https://giphy.com/gifs/richard-ayoade-it-crowd-maurice-moss-dbtDDSvWErdf2",
		},
	}
}

// CampusInfo returns the table row for code.
func (v Vocabulary) CampusInfo(code Campus) (CampusInfo, bool) {
	for _, c := range v.Campuses {
		if c.Code == code {
			return c, true
		}
	}
	return CampusInfo{}, false
}

// Color returns the card colour for code, or "" when unknown.
func (v Vocabulary) Color(code Campus) string {
	info, _ := v.CampusInfo(code)
	return info.Color
}

// IsCampus reports whether code is one of the known campuses.
func (v Vocabulary) IsCampus(code Campus) bool {
	_, ok := v.CampusInfo(code)
	return ok
}
