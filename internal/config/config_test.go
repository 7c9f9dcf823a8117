package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockKeychain is a test double for the keychain interface, keyed by account.
type mockKeychain map[string]string

func (m mockKeychain) Get(service, account string) (string, error) {
	v, ok := m[account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv blanks every variable the loader reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
	t.Setenv("API_KEY", "")
	t.Setenv("XDG_DATA_HOME", "/var/lib/houhou-test")
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `# empty config`)

	cfg, err := loadFromPath(path, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Remote.BaseURL != "http://localhost:8000/api/v1" {
		t.Errorf("Remote.BaseURL = %q, want %q", cfg.Remote.BaseURL, "http://localhost:8000/api/v1")
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("Remote.Timeout = %s, want 10s", cfg.Remote.Timeout)
	}
	if cfg.Storage.DataDir != "/var/lib/houhou-test/houhou" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if !cfg.Auth.LocalEnabled {
		t.Error("Auth.LocalEnabled = false, want true")
	}
	if cfg.Auth.DemoEmail != "houhouadmin@gmail.com" || cfg.Auth.DemoPassword != "houhouadmin@gmail" {
		t.Errorf("demo credentials = %q / %q", cfg.Auth.DemoEmail, cfg.Auth.DemoPassword)
	}
	if cfg.Chat.Model != "gemini-3-flash-preview" {
		t.Errorf("Chat.Model = %q", cfg.Chat.Model)
	}
	if cfg.ChatEnabled() {
		t.Error("ChatEnabled = true with no key configured")
	}
}

// TestMissingFile verifies a missing config file is not an error.
func TestMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := loadFromPath(filepath.Join(t.TempDir(), "nope.toml"), mockKeychain{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestTOMLParsing verifies that all fields are correctly read from a TOML file.
func TestTOMLParsing(t *testing.T) {
	clearEnv(t)
	content := `
[server]
port = 5000

[remote]
base_url = "https://api.houhou.tw/api/v1"
timeout = "3s"

[storage]
data_dir = "/tmp/houhou-test"

[log]
level = "debug"

[auth]
local_enabled = false
demo_email = "demo@houhou.tw"

[chat]
model = "gemini-2.5-flash"
`
	path := writeTempConfig(t, content)

	cfg, err := loadFromPath(path, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Remote.BaseURL != "https://api.houhou.tw/api/v1" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Timeout != 3*time.Second {
		t.Errorf("Remote.Timeout = %s, want 3s", cfg.Remote.Timeout)
	}
	if cfg.Storage.DataDir != "/tmp/houhou-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Auth.LocalEnabled {
		t.Error("Auth.LocalEnabled = true, want false")
	}
	if cfg.Auth.DemoEmail != "demo@houhou.tw" {
		t.Errorf("Auth.DemoEmail = %q", cfg.Auth.DemoEmail)
	}
	if cfg.Chat.Model != "gemini-2.5-flash" {
		t.Errorf("Chat.Model = %q", cfg.Chat.Model)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `[remote]
base_url = "http://file:8000/api/v1"
`)

	t.Setenv("HOUHOU_REMOTE_BASE_URL", "http://env:8000/api/v1")
	t.Setenv("HOUHOU_SERVER_PORT", "4100")
	t.Setenv("HOUHOU_AUTH_LOCAL_ENABLED", "false")

	cfg, err := loadFromPath(path, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Remote.BaseURL != "http://env:8000/api/v1" {
		t.Errorf("Remote.BaseURL = %q, want %q", cfg.Remote.BaseURL, "http://env:8000/api/v1")
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Auth.LocalEnabled {
		t.Error("Auth.LocalEnabled = true, want false")
	}
}

// TestSecretsIgnoredInFile verifies secrets cannot be planted in the config file.
func TestSecretsIgnoredInFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `[chat]
api_key = "file-key"
`)

	cfg, err := loadFromPath(path, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chat.APIKey != "" {
		t.Errorf("Chat.APIKey = %q, want empty", cfg.Chat.APIKey)
	}
}

func TestChatKeySources(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		keychain mockKeychain
		want     string
	}{
		{"env", map[string]string{"HOUHOU_CHAT_API_KEY": "env-key", "API_KEY": "generic"}, mockKeychain{"chat_api_key": "kc"}, "env-key"},
		{"generic env", map[string]string{"API_KEY": "generic"}, mockKeychain{"chat_api_key": "kc"}, "generic"},
		{"keychain", nil, mockKeychain{"chat_api_key": "kc"}, "kc"},
		{"none", nil, mockKeychain{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := loadFromPath(writeTempConfig(t, ""), tt.keychain)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Chat.APIKey != tt.want {
				t.Errorf("Chat.APIKey = %q, want %q", cfg.Chat.APIKey, tt.want)
			}
		})
	}
}

// TestKeychainFallback verifies the secret store is consulted for the demo password.
func TestKeychainFallback(t *testing.T) {
	clearEnv(t)

	cfg, err := loadFromPath(writeTempConfig(t, ""), mockKeychain{"auth_demo_password": "from-store"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.DemoPassword != "from-store" {
		t.Errorf("Auth.DemoPassword = %q, want %q", cfg.Auth.DemoPassword, "from-store")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"port", "[server]\nport = 70000\n", "server.port"},
		{"relative url", "[remote]\nbase_url = \"/api/v1\"\n", "remote.base_url"},
		{"log level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"timeout", "[remote]\ntimeout = \"-1s\"\n", "remote.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := loadFromPath(writeTempConfig(t, tt.content), mockKeychain{})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

// TestUnparsableDurationKeepsDefault verifies a bad duration warns instead of failing.
func TestUnparsableDurationKeepsDefault(t *testing.T) {
	clearEnv(t)
	cfg, err := loadFromPath(writeTempConfig(t, "[remote]\ntimeout = \"soon\"\n"), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("Remote.Timeout = %s, want 10s", cfg.Remote.Timeout)
	}
}

func TestSetKeyWritesTables(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "houhou", "config.toml")
	b := newFileBackend(path)

	if err := setKeyWith(b, "server.port", "4200"); err != nil {
		t.Fatalf("set port: %v", err)
	}
	if err := setKeyWith(b, "remote.timeout", "2s"); err != nil {
		t.Fatalf("set timeout: %v", err)
	}
	if err := setKeyWith(b, "auth.local_enabled", "false"); err != nil {
		t.Fatalf("set local_enabled: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	if !strings.Contains(string(data), "[server]") {
		t.Errorf("config file has no [server] table:\n%s", data)
	}

	cfg, err := loadFromPath(path, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4200 || cfg.Remote.Timeout != 2*time.Second || cfg.Auth.LocalEnabled {
		t.Errorf("round trip = port %d, timeout %s, local %v", cfg.Server.Port, cfg.Remote.Timeout, cfg.Auth.LocalEnabled)
	}
}

func TestSetKeyErrors(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.toml"))

	tests := []struct {
		key, value string
	}{
		{"nope.key", "x"},
		{"chat.api_key", "secret"},
		{"server.port", "abc"},
		{"remote.timeout", "soon"},
		{"auth.local_enabled", "maybe"},
	}
	for _, tt := range tests {
		if err := setKeyWith(b, tt.key, tt.value); err == nil {
			t.Errorf("setKeyWith(%q, %q) = nil, want error", tt.key, tt.value)
		}
	}
}

func TestBackendDelete(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.toml"))
	if err := b.SetString("log.level", "warn"); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete("log.level"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.GetString("log.level"); ok {
		t.Error("key still present after Delete")
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Chat.APIKey = "super-secret"

	for _, k := range ShowAll(cfg) {
		if k.Secret && k.Value != "(set)" && k.Value != "(unset)" {
			t.Errorf("%s leaks secret value %q", k.Key, k.Value)
		}
		if k.Key == "chat.api_key" && k.Value != "(set)" {
			t.Errorf("chat.api_key = %q, want (set)", k.Value)
		}
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		for _, s := range SecretKeys() {
			if k == s {
				t.Errorf("ValidKeys contains secret %q", k)
			}
		}
	}
	if len(SecretKeys()) != 2 {
		t.Errorf("SecretKeys = %v, want 2 entries", SecretKeys())
	}
}
