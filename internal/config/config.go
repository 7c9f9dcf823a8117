package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Remote  RemoteConfig
	Storage StorageConfig
	Log     LogConfig
	Auth    AuthConfig
	Chat    ChatConfig
}

type ServerConfig struct {
	Port int
}

// RemoteConfig points at the content API the site prefers while it is reachable.
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// AuthConfig controls the offline login used once the remote API is unreachable.
type AuthConfig struct {
	LocalEnabled bool
	DemoEmail    string
	DemoPassword string
}

type ChatConfig struct {
	Model  string
	APIKey string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Remote: RemoteConfig{
			BaseURL: "http://localhost:8000/api/v1",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			LocalEnabled: true,
			DemoEmail:    "houhouadmin@gmail.com",
			DemoPassword: "houhouadmin@gmail",
		},
		Chat: ChatConfig{
			Model: "gemini-3-flash-preview",
		},
	}
}

// Load reads configuration from the TOML file at
// $XDG_CONFIG_HOME/houhou/config.toml, environment variables and the
// platform secret store.
//
// Environment variables (HOUHOU_*) override file values. Secrets are never
// read from the config file; they come from the environment or, failing
// that, the secret store (macOS Keychain, or secrets.json in the data dir
// elsewhere). The chat key also honours API_KEY.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), keychainReader{})
}

func loadFromPath(path string, kc keychain) (Config, error) {
	return loadWith(newFileBackend(path), kc)
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Chat.APIKey == "" {
		cfg.Chat.APIKey = os.Getenv("API_KEY")
	}
	for _, s := range specs {
		if !s.secret || s.env == "" || os.Getenv(s.env) != "" {
			continue
		}
		if s.key == "chat.api_key" && cfg.Chat.APIKey != "" {
			continue
		}
		if v, err := kc.Get(secretService, secretAccount(s.key)); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid config: remote.base_url %q is not an absolute URL", c.Remote.BaseURL)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("invalid config: remote.timeout must be positive, got %s", c.Remote.Timeout)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: log.level %q (want debug, info, warn or error)", c.Log.Level)
	}
	return nil
}

// ChatEnabled reports whether an API key for the companion is configured.
func (c Config) ChatEnabled() bool {
	return c.Chat.APIKey != ""
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "houhou-data"
		}
	}
	return filepath.Join(dir, "houhou")
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "houhou", "config.toml")
}

const secretService = "houhou"

// secretAccount maps a dotted key to its secret store account name.
func secretAccount(key string) string {
	return strings.ReplaceAll(key, ".", "_")
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
