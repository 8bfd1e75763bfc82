package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"docflow/internal/config"
)

func writeConfig(t *testing.T, payload any) string {
	t.Helper()
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected no config file, got %s", resolved)
	}
	if want := filepath.Join(tempHome, ".config", "docflow", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "docflow"); cfg.Paths.DataDir != want {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, want)
	}
	if cfg.ReviewSLA() != 48*time.Hour {
		t.Fatalf("expected 48h review SLA, got %s", cfg.ReviewSLA())
	}
	if cfg.RevisionSLA() != 72*time.Hour {
		t.Fatalf("expected 72h revision SLA, got %s", cfg.RevisionSLA())
	}
	if cfg.Workflow.DeferredStart {
		t.Fatal("expected immediate start by default")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadFileAndEnvironmentOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	payload := map[string]any{
		"paths": map[string]any{
			"data_dir":   "~/docflow-data",
			"export_dir": "~/exports",
			"api_token":  "file-token",
		},
		"workflow": map[string]any{
			"deferred_start": true,
		},
		"review": map[string]any{
			"review_sla_hours": 24,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "debug",
		},
	}
	path := writeConfig(t, payload)

	t.Setenv("DOCFLOW_API_TOKEN", "env-token")
	t.Setenv("DOCFLOW_NTFY_TOPIC", "https://ntfy.sh/docflow-test")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved %q to exist, got %q (exists=%v)", path, resolved, exists)
	}
	if want := filepath.Join(tempHome, "docflow-data"); cfg.Paths.DataDir != want {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, want)
	}
	if want := filepath.Join(tempHome, "exports"); cfg.Paths.ExportDir != want {
		t.Fatalf("unexpected export dir: got %q want %q", cfg.Paths.ExportDir, want)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Fatalf("expected environment token to win, got %q", cfg.Paths.APIToken)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/docflow-test" {
		t.Fatalf("unexpected ntfy topic %q", cfg.Notifications.NtfyTopic)
	}
	if !cfg.Workflow.DeferredStart {
		t.Fatal("expected deferred start from file")
	}
	if cfg.ReviewSLA() != 24*time.Hour {
		t.Fatalf("expected 24h review SLA, got %s", cfg.ReviewSLA())
	}
	if cfg.RevisionSLA() != 72*time.Hour {
		t.Fatalf("expected default revision SLA, got %s", cfg.RevisionSLA())
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{
			name:    "log format",
			payload: map[string]any{"logging": map[string]any{"format": "xml"}},
			want:    "logging.format",
		},
		{
			name:    "ntfy topic",
			payload: map[string]any{"notifications": map[string]any{"ntfy_topic": "docflow"}},
			want:    "notifications.ntfy_topic",
		},
		{
			name:    "negative sla",
			payload: map[string]any{"review": map[string]any{"review_sla_hours": -1}},
			want:    "review.review_sla_hours",
		},
		{
			name:    "api bind",
			payload: map[string]any{"paths": map[string]any{"api_bind": "localhost"}},
			want:    "paths.api_bind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.payload)
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind %q", cfg.Paths.APIBind)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.ExportDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if filepath.Dir(cfg.DatabasePath()) != cfg.Paths.DataDir {
		t.Fatalf("database path %q not under data dir", cfg.DatabasePath())
	}
}
