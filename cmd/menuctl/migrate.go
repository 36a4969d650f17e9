package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyellow/komida-linebot-go/internal/storage"
	"github.com/garyellow/komida-linebot-go/internal/storage/pgstore"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the menu store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// Opening either store migrates it.
			if cfg.UsesPostgres() {
				pg, err := pgstore.New(cmd.Context(), cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pg.Close()

				version, dirty, err := pg.SchemaVersion()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "postgres: schema version %d (dirty=%t)\n", version, dirty)
				return err
			}

			db, err := storage.New(cmd.Context(), cfg.SQLitePath())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			version, dirty, err := storage.SchemaVersion(db.Writer())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d (dirty=%t)\n", cfg.SQLitePath(), version, dirty)
			return err
		},
	}
}
