// Package config provides centralized timeout constants for the application.
//
// # LINE API Constraints
//
// LINE expects a quick 200 OK on the webhook, so events are processed after
// the response is written. A reply token is single use; follow-up messages
// within the same flow are pushed instead.
//
// A message that misses the local store blocks on a snapshot refresh before
// the second lookup, so WebhookProcessing must cover one snapshot download.
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing is the timeout for handling a single chat message,
	// including a synchronous refresh on a cache miss.
	WebhookProcessing = 60 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Should be short since LINE sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second

	// LINEAPICall bounds a single reply or push request.
	LINEAPICall = 10 * time.Second
)

// Database settings
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour

	// DatabaseReaderConns is the size of the read pool.
	DatabaseReaderConns = 8

	// SlowQueryThreshold triggers a warning log for lookups slower than this.
	SlowQueryThreshold = 100 * time.Millisecond
)

// Snapshot timeouts
const (
	// SnapshotDownload bounds one snapshot download, decompress and swap.
	SnapshotDownload = 45 * time.Second

	// SnapshotStartup bounds the initial snapshot load during startup.
	SnapshotStartup = 2 * time.Minute
)

// Background job intervals
const (
	// MetricsUpdateInterval is how often cache size metrics are updated.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often inactive chat rate limiters are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute

	// ReadinessCheckTimeout bounds the database checks of /readyz.
	ReadinessCheckTimeout = 3 * time.Second
)
