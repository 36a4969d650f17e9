// Package main provides the LINE bot server entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/garyellow/komida-linebot-go/internal/app"
	"github.com/garyellow/komida-linebot-go/internal/buildinfo"
	"github.com/garyellow/komida-linebot-go/internal/config"
	"github.com/garyellow/komida-linebot-go/internal/sentry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
		ServerName:  cfg.ServerName,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize Sentry: %v\n", err)
	}
	defer sentry.Flush(2 * time.Second)

	application, err := app.Initialize(context.Background(), cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}
