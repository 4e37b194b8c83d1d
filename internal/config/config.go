// Package config loads the shopbot JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Server     ServerConfig     `json:"server"`
	Platform   PlatformConfig   `json:"platform"`
	Generation GenerationConfig `json:"generation"`
	Vault      VaultConfig      `json:"vault"`
	Storage    StorageConfig    `json:"storage"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
}

type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	WebhookPath string `json:"webhookPath"`
}

// PlatformConfig holds messaging-platform settings. AppSecret signs inbound
// webhooks; VerifyToken answers the subscription challenge.
type PlatformConfig struct {
	AppSecret   string `json:"appSecret"`
	VerifyToken string `json:"verifyToken"`
	APIBase     string `json:"apiBase,omitempty"`
}

type GenerationConfig struct {
	APIKey    string `json:"apiKey"`
	APIBase   string `json:"apiBase,omitempty"`
	Model     string `json:"model"`
	TimeoutMs int    `json:"timeoutMs"`
}

// VaultConfig carries the credential-encryption key as 64 hex characters
// (32 raw bytes). Normally injected via ${SHOPBOT_VAULT_KEY}.
type VaultConfig struct {
	KeyHex string `json:"keyHex"`
}

type StorageConfig struct {
	DBPath string `json:"dbPath"`
}

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			WebhookPath: "/webhook",
		},
		Platform: PlatformConfig{
			AppSecret:   "${SHOPBOT_APP_SECRET}",
			VerifyToken: "${SHOPBOT_VERIFY_TOKEN}",
		},
		Generation: GenerationConfig{
			APIKey:    "${SHOPBOT_GENERATION_API_KEY}",
			Model:     "gemini-1.5-flash",
			TimeoutMs: 5000,
		},
		Vault: VaultConfig{
			KeyHex: "${SHOPBOT_VAULT_KEY}",
		},
		Storage: StorageConfig{
			DBPath: "~/.shopbot/shopbot.db",
		},
	}
}

func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shopbot"
	}
	return filepath.Join(home, ".shopbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Storage.DBPath = ExpandPath(cfg.Storage.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

var hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Validate checks value shapes. Unresolved ${VAR} placeholders are treated as
// unset: serve refuses to start without its secrets, but commands that do not
// need them still work.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Generation.TimeoutMs < 1 {
		errs = append(errs, "generation.timeoutMs must be positive")
	}
	if key := cfg.Vault.KeyHex; key != "" && !isPlaceholder(key) && !hexKeyPattern.MatchString(key) {
		errs = append(errs, "vault.keyHex must be exactly 64 hex characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Secret returns a secret-ish config value, treating unresolved placeholders
// as empty.
func Secret(v string) string {
	if isPlaceholder(v) {
		return ""
	}
	return v
}

func isPlaceholder(v string) bool {
	return strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}")
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty. Unset variables without a default keep the original text.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
