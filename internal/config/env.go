package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvLineChannelAccessToken = "KOMIDA_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "KOMIDA_LINE_CHANNEL_SECRET"

	// Server
	EnvPort            = "KOMIDA_PORT"
	EnvLogLevel        = "KOMIDA_LOG_LEVEL"
	EnvShutdownTimeout = "KOMIDA_SHUTDOWN_TIMEOUT"
	EnvServerName      = "KOMIDA_SERVER_NAME"

	// Data
	EnvDataDir     = "KOMIDA_DATA_DIR"
	EnvDatabaseURL = "KOMIDA_DATABASE_URL"

	// Bot
	EnvBotName          = "KOMIDA_BOT_NAME"
	EnvBotIconURL       = "KOMIDA_BOT_ICON_URL"
	EnvPublicPrefixes   = "KOMIDA_PUBLIC_CHANNEL_PREFIXES"
	EnvWebhookTimeout   = "KOMIDA_WEBHOOK_TIMEOUT"
	EnvMaxEventsPerHook = "KOMIDA_MAX_EVENTS_PER_WEBHOOK"

	// Rate Limits
	EnvGlobalRateRPS  = "KOMIDA_GLOBAL_RATE_RPS"
	EnvChatRateBurst  = "KOMIDA_CHAT_RATE_BURST"
	EnvChatRateRefill = "KOMIDA_CHAT_RATE_REFILL"

	// R2 Snapshot
	EnvR2Endpoint             = "KOMIDA_R2_ENDPOINT"
	EnvR2AccessKeyID          = "KOMIDA_R2_ACCESS_KEY_ID"
	EnvR2SecretKey            = "KOMIDA_R2_SECRET_ACCESS_KEY"
	EnvR2Bucket               = "KOMIDA_R2_BUCKET"
	EnvR2SnapshotKey          = "KOMIDA_R2_SNAPSHOT_KEY"
	EnvR2SnapshotPollInterval = "KOMIDA_R2_SNAPSHOT_POLL_INTERVAL"

	// Metrics
	EnvMetricsUsername = "KOMIDA_METRICS_USERNAME"
	EnvMetricsPassword = "KOMIDA_METRICS_PASSWORD"

	// Better Stack
	EnvBetterStackToken = "KOMIDA_BETTERSTACK_TOKEN"

	// Sentry
	EnvSentryToken       = "KOMIDA_SENTRY_TOKEN"
	EnvSentryHost        = "KOMIDA_SENTRY_HOST"
	EnvSentryEnvironment = "KOMIDA_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "KOMIDA_SENTRY_SAMPLE_RATE"
)
