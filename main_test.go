package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/caarlos0/env/v9"
)

func parseTestConfig(t *testing.T, vars map[string]string) Config {
	t.Helper()
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := parseTestConfig(t, map[string]string{})

	if got := cfg.addr(); got != "0.0.0.0:3000" {
		t.Errorf("addr() = %q, want 0.0.0.0:3000", got)
	}
	if cfg.AssetsDir != "assets" {
		t.Errorf("AssetsDir = %q", cfg.AssetsDir)
	}
	if cfg.SpeechProvider != speechProviderOpenAI {
		t.Errorf("SpeechProvider = %q", cfg.SpeechProvider)
	}
	if cfg.ClipWidth != 640 || cfg.ClipHeight != 480 || cfg.ClipFPS != 30 {
		t.Errorf("clip geometry = %dx%d@%d", cfg.ClipWidth, cfg.ClipHeight, cfg.ClipFPS)
	}
	if cfg.ReconcileInterval != time.Hour || cfg.ReconcileGrace != 30*time.Minute {
		t.Errorf("reconcile = %v/%v", cfg.ReconcileInterval, cfg.ReconcileGrace)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.storageConfigured() {
		t.Error("storage should not be configured without credentials")
	}
}

func TestConfigOverrides(t *testing.T) {
	cfg := parseTestConfig(t, map[string]string{
		"HOST":              "127.0.0.1",
		"PORT":              "8080",
		"LOG_LEVEL":         "warn",
		"SPACES_ENDPOINT":   "fra1.digitaloceanspaces.com",
		"SPACES_BUCKET":     "signs",
		"SPACES_ACCESS_KEY": "key",
		"SPACES_SECRET_KEY": "secret",
	})

	if got := cfg.addr(); got != "127.0.0.1:8080" {
		t.Errorf("addr() = %q", got)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if !cfg.storageConfigured() {
		t.Error("storage should be configured")
	}
}

func TestParseConfigRejectsNonPositiveGrace(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		grace    string
		wantErr  bool
	}{
		{"defaults", "1h", "30m", false},
		{"zero grace", "1h", "0s", true},
		{"negative grace", "1h", "-5m", true},
		{"reconciler disabled", "0s", "0s", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RECONCILE_INTERVAL", tt.interval)
			t.Setenv("RECONCILE_GRACE", tt.grace)

			_, err := parseConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("parseConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewTranscriber(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai", Config{SpeechProvider: speechProviderOpenAI, OpenAIToken: "token"}, false},
		{"openai without token", Config{SpeechProvider: speechProviderOpenAI}, true},
		{"google with bad credentials", Config{SpeechProvider: speechProviderGoogle, GoogleCredentials: "%%%"}, true},
		{"unknown provider", Config{SpeechProvider: "azure"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTranscriber(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("newTranscriber() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCDNBaseURLWithoutCDN(t *testing.T) {
	base, err := cdnBaseURL(context.Background(), Config{})
	if err != nil || base != "" {
		t.Fatalf("cdnBaseURL() = (%q, %v), want empty", base, err)
	}
	if _, err := cdnBaseURL(context.Background(), Config{SpacesCDNID: "cdn"}); err == nil {
		t.Fatal("expected error when token is missing")
	}
}
