package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyellow/komida-linebot-go/internal/config"
	"github.com/garyellow/komida-linebot-go/internal/r2client"
	"github.com/garyellow/komida-linebot-go/internal/snapshot"
	"github.com/garyellow/komida-linebot-go/internal/storage"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Transfer the SQLite store to and from R2",
	}
	cmd.AddCommand(newSnapshotPullCmd(), newSnapshotPushCmd())
	return cmd
}

func newSnapshotPullCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download the published snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, err := snapshotManager(cmd)
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.SQLitePath()
			}

			etag, err := mgr.Pull(cmd.Context(), out)
			if errors.Is(err, snapshot.ErrNotFound) {
				return fmt.Errorf("no snapshot at %s", cfg.R2SnapshotKey)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "pulled %s (etag %s) to %s\n", cfg.R2SnapshotKey, etag, out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination file (default: the configured store)")
	return cmd
}

func newSnapshotPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Publish the local store as the new snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, err := snapshotManager(cmd)
			if err != nil {
				return err
			}

			db, err := storage.New(cmd.Context(), cfg.SQLitePath())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			etag, err := mgr.Push(cmd.Context(), db)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "published %s (etag %s)\n", cfg.R2SnapshotKey, etag)
			return err
		},
	}
}

// snapshotManager builds a publish-only manager; swapping is the server's job.
func snapshotManager(cmd *cobra.Command) (*config.Config, *snapshot.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.HasR2() {
		return nil, nil, errors.New("R2 is not configured")
	}

	r2, err := r2client.New(cmd.Context(), r2client.Config{
		Endpoint:    cfg.R2Endpoint,
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretKey,
		BucketName:  cfg.R2Bucket,
	})
	if err != nil {
		return nil, nil, err
	}

	return cfg, snapshot.New(r2, nil, snapshot.Config{
		SnapshotKey: cfg.R2SnapshotKey,
		DataDir:     cfg.DataDir,
	}), nil
}
