package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("")

	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected server address: %q", cfg.Server.Address)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Fatalf("unexpected provider: %q", cfg.LLM.Provider)
	}
	if len(cfg.LLM.Models) == 0 {
		t.Fatalf("expected default model list")
	}
	if cfg.Agents.MaxRetries != 3 {
		t.Fatalf("unexpected max retries: %d", cfg.Agents.MaxRetries)
	}
	if cfg.Tools.HTTP.Retries != 2 {
		t.Fatalf("unexpected http retries: %d", cfg.Tools.HTTP.Retries)
	}
	if cfg.Tools.HTTP.Backoff != 300*time.Millisecond {
		t.Fatalf("unexpected http backoff: %v", cfg.Tools.HTTP.Backoff)
	}
	if cfg.Tools.Weather.Units != "metric" {
		t.Fatalf("unexpected weather units: %q", cfg.Tools.Weather.Units)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"server": {"address": ":9999"},
		"agents": {"max_retries": 5},
		"tools": {"github": {"max_results": 7}}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadConfig(path)
	if cfg.Server.Address != ":9999" {
		t.Fatalf("file value not applied: %q", cfg.Server.Address)
	}
	if cfg.Agents.MaxRetries != 5 {
		t.Fatalf("file value not applied: %d", cfg.Agents.MaxRetries)
	}
	if cfg.Tools.GitHub.MaxResults != 7 {
		t.Fatalf("file value not applied: %d", cfg.Tools.GitHub.MaxResults)
	}
	// Values the file does not set keep their defaults.
	if cfg.LLM.Provider != "gemini" {
		t.Fatalf("default lost: %q", cfg.LLM.Provider)
	}
}

func TestLoadConfigPrefixedEnvKeys(t *testing.T) {
	t.Setenv("TASKPILOT_LLM_GEMINI_API_KEY", "prefixed-gk")
	t.Setenv("TASKPILOT_TOOLS_WEATHER_API_KEY", "prefixed-wk")

	cfg := LoadConfig("")
	if cfg.LLM.APIKey != "prefixed-gk" {
		t.Fatalf("TASKPILOT_LLM_GEMINI_API_KEY not honored: %q", cfg.LLM.APIKey)
	}
	if cfg.Tools.Weather.APIKey != "prefixed-wk" {
		t.Fatalf("TASKPILOT_TOOLS_WEATHER_API_KEY not honored: %q", cfg.Tools.Weather.APIKey)
	}
}

func TestLoadConfigPrefixedEnvKeysWinOverBare(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "bare-gk")
	t.Setenv("TASKPILOT_LLM_GEMINI_API_KEY", "prefixed-gk")

	cfg := LoadConfig("")
	if cfg.LLM.APIKey != "prefixed-gk" {
		t.Fatalf("prefixed key must win over bare fallback: %q", cfg.LLM.APIKey)
	}
}

func TestLoadConfigBareEnvKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gk-test")
	t.Setenv("WEATHER_API_KEY", "wk-test")

	cfg := LoadConfig("")
	if cfg.LLM.APIKey != "gk-test" {
		t.Fatalf("gemini key not picked up: %q", cfg.LLM.APIKey)
	}
	if cfg.Tools.Weather.APIKey != "wk-test" {
		t.Fatalf("weather key not picked up: %q", cfg.Tools.Weather.APIKey)
	}
}
