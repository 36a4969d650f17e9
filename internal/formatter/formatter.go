// Package formatter renders menu entries as text and display cards.
package formatter

import (
	"fmt"
	"strings"

	"github.com/garyellow/komida-linebot-go/internal/menu"
)

// Fixed category names with their own display slot.
const (
	CategorySoup       = "soup"
	CategoryVegetarian = "vegetarian"
	CategoryMeat       = "meat"
)

// Formatter turns menu data into display strings.
type Formatter struct {
	vocab menu.Vocabulary
}

// New creates a formatter using the vocabulary icons and colours.
func New(vocab menu.Vocabulary) *Formatter {
	return &Formatter{vocab: vocab}
}

// FormatEntry renders one line per displayed item in the order
// soup, vegetarian, meat, every *grill* category, every *pasta* category.
// Other categories are not shown.
func (f *Formatter) FormatEntry(entry *menu.Entry) string {
	icons := f.vocab.Icons
	var lines []string

	for _, slot := range []struct {
		category string
		icon     string
	}{
		{CategorySoup, icons.Soup},
		{CategoryVegetarian, icons.Vegetarian},
		{CategoryMeat, icons.Meat},
	} {
		if item, ok := entry.Get(slot.category); ok {
			lines = append(lines, formatLine(slot.icon, item))
		}
	}

	items := entry.Items()
	for _, item := range items {
		if strings.Contains(item.Category, "grill") {
			lines = append(lines, formatLine(icons.Grill, item))
		}
	}
	for _, item := range items {
		if strings.Contains(item.Category, "pasta") {
			lines = append(lines, formatLine(icons.Pasta, item))
		}
	}

	return strings.Join(lines, "\n")
}

func formatLine(icon string, item menu.Item) string {
	return fmt.Sprintf("%s %s (€%.2f / €%.2f)", icon, item.Description, item.PriceStudent, item.PriceStaff)
}

// Title returns the card title for key.
func Title(key menu.Key) string {
	return fmt.Sprintf("Menu komida %s on %s", key.Campus.Upper(), key.Date.Display())
}

// BuildCards returns one card per entry of result, in result order.
func (f *Formatter) BuildCards(result *menu.Result) []menu.Card {
	keys := result.Keys()
	cards := make([]menu.Card, 0, len(keys))
	for _, key := range keys {
		entry, _ := result.Get(key)
		cards = append(cards, menu.Card{
			Title: Title(key),
			Color: f.vocab.Color(key.Campus),
			Text:  f.FormatEntry(entry),
		})
	}
	return cards
}

// MissingNotice is the interim text sent before trying to refresh.
func MissingNotice(campuses []menu.Campus, dates []menu.Date) string {
	codes := make([]string, len(campuses))
	for i, c := range campuses {
		codes[i] = c.Upper()
	}
	days := make([]string, len(dates))
	for i, d := range dates {
		days[i] = d.Display()
	}
	return fmt.Sprintf("I don't have the menu for %s on %s. Let me see if I can find it online...",
		strings.Join(codes, ", "), strings.Join(days, ", "))
}
