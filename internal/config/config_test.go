package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(EnvLineChannelAccessToken, "test_token")
	t.Setenv(EnvLineChannelSecret, "test_secret")
}

func TestLoad(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LineChannelToken != "test_token" {
		t.Errorf("Expected token 'test_token', got '%s'", cfg.LineChannelToken)
	}
	if cfg.LineChannelSecret != "test_secret" {
		t.Errorf("Expected secret 'test_secret', got '%s'", cfg.LineChannelSecret)
	}

	// Defaults
	if cfg.Port != "10000" {
		t.Errorf("Expected default port '10000', got '%s'", cfg.Port)
	}
	if cfg.Bot.Name != "komidabot" {
		t.Errorf("Expected bot name 'komidabot', got '%s'", cfg.Bot.Name)
	}
	if got := strings.Join(cfg.Bot.PublicChannelPrefixes, ","); got != "C,R" {
		t.Errorf("Expected public prefixes C,R, got %s", got)
	}
	if cfg.R2SnapshotPollInterval != 2*time.Hour {
		t.Errorf("Expected 2h poll interval, got %v", cfg.R2SnapshotPollInterval)
	}
	if cfg.HasR2() {
		t.Error("R2 must be disabled without credentials")
	}
	if cfg.UsesPostgres() {
		t.Error("Postgres must be disabled without a URL")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvPublicPrefixes, " C , ,G")
	t.Setenv(EnvR2SnapshotPollInterval, "15m")
	t.Setenv(EnvChatRateBurst, "3")
	t.Setenv(EnvDataDir, "/tmp/komida")
	t.Setenv(EnvR2Endpoint, "https://example.r2.cloudflarestorage.com")
	t.Setenv(EnvR2AccessKeyID, "id")
	t.Setenv(EnvR2SecretKey, "secret")
	t.Setenv(EnvR2Bucket, "menus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if got := strings.Join(cfg.Bot.PublicChannelPrefixes, ","); got != "C,G" {
		t.Errorf("prefixes = %s", got)
	}
	if cfg.R2SnapshotPollInterval != 15*time.Minute {
		t.Errorf("poll interval = %v", cfg.R2SnapshotPollInterval)
	}
	if cfg.Bot.ChatRateBurst != 3 {
		t.Errorf("chat burst = %v", cfg.Bot.ChatRateBurst)
	}
	if !cfg.HasR2() {
		t.Error("expected R2 enabled")
	}
	if cfg.SQLitePath() != "/tmp/komida/menu.db" {
		t.Errorf("SQLitePath() = %s", cfg.SQLitePath())
	}
}

func TestLoadForMode(t *testing.T) {
	tests := []struct {
		name        string
		mode        ValidationMode
		setupEnv    func(t *testing.T)
		wantErr     bool
		errContains string
	}{
		{
			name:     "server mode - valid config",
			mode:     ServerMode,
			setupEnv: setRequired,
			wantErr:  false,
		},
		{
			name:        "server mode - missing credentials",
			mode:        ServerMode,
			setupEnv:    func(t *testing.T) {},
			wantErr:     true,
			errContains: EnvLineChannelAccessToken,
		},
		{
			name:     "cli mode - no credentials required",
			mode:     CLIMode,
			setupEnv: func(t *testing.T) {},
			wantErr:  false,
		},
		{
			name: "sentry token without host",
			mode: CLIMode,
			setupEnv: func(t *testing.T) {
				t.Setenv(EnvSentryToken, "tok")
			},
			wantErr:     true,
			errContains: EnvSentryHost,
		},
		{
			name: "plain http icon",
			mode: CLIMode,
			setupEnv: func(t *testing.T) {
				t.Setenv(EnvBotIconURL, "http://example.com/icon.png")
			},
			wantErr:     true,
			errContains: "https",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLineChannelAccessToken, "")
			t.Setenv(EnvLineChannelSecret, "")
			tt.setupEnv(t)

			_, err := LoadForMode(tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadForMode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q should contain %q", err, tt.errContains)
			}
		})
	}
}

func TestBotConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := BotConfig{
		Name:                "komidabot",
		WebhookTimeout:      time.Second,
		MaxEventsPerWebhook: 10,
		GlobalRateRPS:       1,
		ChatRateBurst:       1,
		ChatRateRefill:      1,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	invalid := valid
	invalid.Name = "  "
	invalid.ChatRateRefill = 0
	err := invalid.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "bot name") || !strings.Contains(err.Error(), "chat rate") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestGetListEnv(t *testing.T) {
	t.Setenv("KOMIDA_TEST_LIST", ",,")
	if got := getListEnv("KOMIDA_TEST_LIST", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Errorf("blank list should fall back to default, got %v", got)
	}
}
