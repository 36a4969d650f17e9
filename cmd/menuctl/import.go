package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/garyellow/komida-linebot-go/internal/menu"
	"github.com/garyellow/komida-linebot-go/internal/storage"
	"github.com/garyellow/komida-linebot-go/internal/storage/pgstore"
)

// fixtureDay is one (date, campus) block of an import file.
type fixtureDay struct {
	Date   string        `json:"date"`
	Campus string        `json:"campus"`
	Items  []fixtureItem `json:"items"`
}

type fixtureItem struct {
	Category     string  `json:"category"`
	Item         string  `json:"item"`
	PriceStudent float64 `json:"price_student"`
	PriceStaff   float64 `json:"price_staff"`
}

// itemSaver is satisfied by *storage.DB and *pgstore.Store.
type itemSaver interface {
	SaveItems(ctx context.Context, date menu.Date, campus menu.Campus, items []menu.Item) error
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load a JSON menu fixture into the store",
		Long: `Load a JSON menu fixture into the store. The file holds an array of
{"date": "YYYY-MM-DD", "campus": "cmi", "items": [{"category", "item",
"price_student", "price_staff"}]} objects. Existing rows are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			days, err := parseFixture(f)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var saver itemSaver
			if cfg.UsesPostgres() {
				pg, err := pgstore.New(cmd.Context(), cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pg.Close()
				saver = pg
			} else {
				db, err := storage.New(cmd.Context(), cfg.SQLitePath())
				if err != nil {
					return err
				}
				defer func() { _ = db.Close() }()
				saver = db
			}

			n, err := importDays(cmd.Context(), saver, days)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d items for %d days\n", n, len(days))
			return err
		},
	}
}

func parseFixture(r io.Reader) ([]fixtureDay, error) {
	var days []fixtureDay
	if err := json.NewDecoder(r).Decode(&days); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	vocab := menu.DefaultVocabulary()
	for i, d := range days {
		if _, err := menu.ParseDate(d.Date); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if !vocab.IsCampus(menu.Campus(d.Campus)) {
			return nil, fmt.Errorf("entry %d: unknown campus %q", i, d.Campus)
		}
	}
	return days, nil
}

func importDays(ctx context.Context, saver itemSaver, days []fixtureDay) (int, error) {
	total := 0
	for _, d := range days {
		date, err := menu.ParseDate(d.Date)
		if err != nil {
			return total, err
		}
		items := make([]menu.Item, len(d.Items))
		for i, it := range d.Items {
			items[i] = menu.Item{
				Category:     it.Category,
				Description:  it.Item,
				PriceStudent: it.PriceStudent,
				PriceStaff:   it.PriceStaff,
			}
		}
		if err := saver.SaveItems(ctx, date, menu.Campus(d.Campus), items); err != nil {
			return total, fmt.Errorf("save %s/%s: %w", d.Date, d.Campus, err)
		}
		total += len(items)
	}
	return total, nil
}
