package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Generation.TimeoutMs != 5000 {
		t.Errorf("default generation timeout = %d, want 5000", cfg.Generation.TimeoutMs)
	}
	if cfg.Server.WebhookPath != "/webhook" {
		t.Errorf("default webhook path = %q", cfg.Server.WebhookPath)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `{"server":{"port":9999}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Generation.TimeoutMs != 5000 {
		t.Errorf("unset fields keep defaults, timeout = %d", cfg.Generation.TimeoutMs)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("SHOPBOT_TEST_SECRET", "s3cret")
	path := writeConfig(t, `{"platform":{"appSecret":"${SHOPBOT_TEST_SECRET}","verifyToken":"${SHOPBOT_TEST_UNSET:-fallback}"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Platform.AppSecret != "s3cret" {
		t.Errorf("appSecret = %q", cfg.Platform.AppSecret)
	}
	if cfg.Platform.VerifyToken != "fallback" {
		t.Errorf("verifyToken = %q, want default value", cfg.Platform.VerifyToken)
	}
}

func TestLoadRejectsBadVaultKey(t *testing.T) {
	path := writeConfig(t, `{"vault":{"keyHex":"deadbeef"}}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for short vault key")
	} else if !strings.Contains(err.Error(), "vault.keyHex") {
		t.Errorf("error should name the key: %v", err)
	}
}

func TestValidatePortRange(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected error for port 0")
	}
}

func TestSecretTreatsPlaceholderAsEmpty(t *testing.T) {
	if got := Secret("${SHOPBOT_APP_SECRET}"); got != "" {
		t.Errorf("unresolved placeholder should read as empty, got %q", got)
	}
	if got := Secret("real-value"); got != "real-value" {
		t.Errorf("got %q", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Defaults()
	cfg.Server.Port = 7070

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 7070 {
		t.Errorf("port = %d", loaded.Server.Port)
	}
}
