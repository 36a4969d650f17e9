// Package classifier extracts the requested campuses and dates from chat text.
//
// Matching is plain substring search against the vocabulary tables, so
// "cst" also matches inside unrelated words. Weekday names resolve inside
// the current Monday-based week and may therefore point to an earlier day.
package classifier

import (
	"slices"
	"strings"
	"time"

	"github.com/garyellow/komida-linebot-go/internal/menu"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Clock returns the current time. The local calendar day of the returned
// value is "today".
type Clock func() time.Time

// Classifier turns normalised text into campus and date sets.
type Classifier struct {
	vocab menu.Vocabulary
	now   Clock
}

// New creates a classifier. A nil clock uses time.Now.
func New(vocab menu.Vocabulary, now Clock) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{vocab: vocab, now: now}
}

// Normalize folds compatibility forms (full-width letters and the like)
// and lowercases text.
func Normalize(text string) string {
	return cases.Lower(language.Und).String(norm.NFKC.String(text))
}

// Today returns the current calendar day according to the clock.
func (c *Classifier) Today() menu.Date {
	return menu.DateOf(c.now())
}

// ExtractCampuses returns the campuses whose aliases occur in text, sorted
// by code. It returns the default campus when nothing matches.
func (c *Classifier) ExtractCampuses(text string) []menu.Campus {
	var found []menu.Campus
	for _, info := range c.vocab.Campuses {
		for _, alias := range info.Aliases {
			if strings.Contains(text, alias) {
				found = append(found, info.Code)
				break
			}
		}
	}

	if len(found) == 0 {
		return []menu.Campus{c.vocab.DefaultCampus}
	}

	slices.Sort(found)
	return slices.Compact(found)
}

// ExtractDates returns the dates named in text, ascending and without
// duplicates. It returns today when nothing matches.
func (c *Classifier) ExtractDates(text string) []menu.Date {
	today := c.Today()

	var found []menu.Date
	for _, rd := range c.vocab.RelativeDays {
		if strings.Contains(text, rd.Keyword) {
			found = append(found, today.AddDays(rd.Offset))
		}
	}

	todayIdx := mondayIndex(today.Weekday())
	for idx, name := range c.vocab.Weekdays {
		if name != "" && strings.Contains(text, name) {
			found = append(found, today.AddDays(idx-todayIdx))
		}
	}

	if len(found) == 0 {
		return []menu.Date{today}
	}

	slices.SortFunc(found, menu.Date.Compare)
	return slices.Compact(found)
}

// mondayIndex maps time.Weekday (Sunday=0) to a Monday-based index.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
