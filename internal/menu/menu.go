// Package menu defines the cafeteria menu domain: campuses, calendar dates,
// menu items grouped per (date, campus) and the display cards built from them.
package menu

import (
	"fmt"
	"strings"
	"time"
)

// Campus is the three-letter code of a cafeteria location.
type Campus string

// Known campuses.
const (
	CampusDrieEiken     Campus = "cde"
	CampusGroenenborger Campus = "cgb"
	CampusMiddelheim    Campus = "cmi"
	CampusStad          Campus = "cst"
)

// Upper returns the code in the form used in titles and notices.
func (c Campus) Upper() string {
	return strings.ToUpper(string(c))
}

// Date is a calendar day without time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateLayout is the storage representation of a Date.
const DateLayout = "2006-01-02"

// DisplayLayout renders full weekday, day of month and full month name.
const DisplayLayout = "Monday 02 January"

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day. Arithmetic is done in UTC so
// that daylight saving changes never shift the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	return d.Time().Compare(o.Time())
}

// String returns the storage form (YYYY-MM-DD).
func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

// Display returns the human form, e.g. "Thursday 15 October".
func (d Date) Display() string {
	return d.Time().Format(DisplayLayout)
}

// Item is one row of a menu.
type Item struct {
	Category     string
	Description  string
	PriceStudent float64
	PriceStaff   float64
}

// Entry holds the items offered for one (date, campus). Categories are
// unique; setting an existing category replaces it in place.
type Entry struct {
	items []Item
	index map[string]int
}

// NewEntry returns an entry containing items, in order.
func NewEntry(items ...Item) *Entry {
	e := &Entry{index: make(map[string]int, len(items))}
	for _, it := range items {
		e.Set(it)
	}
	return e
}

// Set adds item or replaces the item with the same category.
func (e *Entry) Set(item Item) {
	if e.index == nil {
		e.index = make(map[string]int)
	}
	if i, ok := e.index[item.Category]; ok {
		e.items[i] = item
		return
	}
	e.index[item.Category] = len(e.items)
	e.items = append(e.items, item)
}

// Get returns the item for category.
func (e *Entry) Get(category string) (Item, bool) {
	if e == nil {
		return Item{}, false
	}
	i, ok := e.index[category]
	if !ok {
		return Item{}, false
	}
	return e.items[i], true
}

// Items returns the items in insertion order.
func (e *Entry) Items() []Item {
	if e == nil {
		return nil
	}
	out := make([]Item, len(e.items))
	copy(out, e.items)
	return out
}

// Len returns the number of categories.
func (e *Entry) Len() int {
	if e == nil {
		return 0
	}
	return len(e.items)
}

// Key identifies one entry of a Result.
type Key struct {
	Date   Date
	Campus Campus
}

// Result maps (date, campus) keys to entries. Iteration follows insertion
// order. Empty entries are never stored.
type Result struct {
	keys    []Key
	entries map[Key]*Entry
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{entries: make(map[Key]*Entry)}
}

// Put stores entry under key. Entries without items are dropped.
func (r *Result) Put(key Key, entry *Entry) {
	if entry.Len() == 0 {
		return
	}
	if _, ok := r.entries[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.entries[key] = entry
}

// Get returns the entry stored under key.
func (r *Result) Get(key Key) (*Entry, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.entries[key]
	return e, ok
}

// Keys returns the keys in insertion order.
func (r *Result) Keys() []Key {
	if r == nil {
		return nil
	}
	out := make([]Key, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of entries.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// IsEmpty reports whether the result holds no entries.
func (r *Result) IsEmpty() bool {
	return r.Len() == 0
}

// Card is a titled, coloured block of text, one per result entry.
type Card struct {
	Title string
	Color string
	Text  string
}
