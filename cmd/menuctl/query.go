package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyellow/komida-linebot-go/internal/bot"
	"github.com/garyellow/komida-linebot-go/internal/classifier"
	"github.com/garyellow/komida-linebot-go/internal/formatter"
	"github.com/garyellow/komida-linebot-go/internal/menu"
	"github.com/garyellow/komida-linebot-go/internal/storage"
	"github.com/garyellow/komida-linebot-go/internal/storage/pgstore"
)

func newQueryCmd() *cobra.Command {
	var today string

	cmd := &cobra.Command{
		Use:   "query TEXT...",
		Short: "Look up menus the way the bot would for a chat message",
		Example: `  menuctl query lunch cde tomorrow
  menuctl query --today 2026-10-14 "stad friday"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clock := classifier.Clock(time.Now)
			if today != "" {
				d, err := menu.ParseDate(today)
				if err != nil {
					return err
				}
				// Noon keeps the local calendar day stable.
				fixed := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.Local)
				clock = func() time.Time { return fixed }
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fetcher, closeFn, err := openFetcher(cmd.Context(), cfg.DatabaseURL, cfg.SQLitePath())
			if err != nil {
				return err
			}
			defer closeFn()

			return runQuery(cmd.Context(), cmd.OutOrStdout(), fetcher, clock, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "treat this YYYY-MM-DD as today")
	return cmd
}

// openFetcher opens PostgreSQL when databaseURL is set, otherwise SQLite at path.
func openFetcher(ctx context.Context, databaseURL, path string) (bot.MenuFetcher, func(), error) {
	if databaseURL != "" {
		pg, err := pgstore.New(ctx, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	db, err := storage.New(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewMenuRepository(db), func() { _ = db.Close() }, nil
}

func runQuery(ctx context.Context, w io.Writer, fetcher bot.MenuFetcher, clock classifier.Clock, text string) error {
	vocab := menu.DefaultVocabulary()
	c := classifier.New(vocab, clock)

	text = classifier.Normalize(text)
	campuses := c.ExtractCampuses(text)
	dates := c.ExtractDates(text)

	result, err := fetcher.FetchMenu(ctx, campuses, dates)
	if err != nil {
		return fmt.Errorf("fetch menu: %w", err)
	}
	if result.IsEmpty() {
		_, err := fmt.Fprintln(w, formatter.MissingNotice(campuses, dates))
		return err
	}

	for i, card := range formatter.New(vocab).BuildCards(result) {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n", card.Title, card.Text); err != nil {
			return err
		}
	}
	return nil
}
