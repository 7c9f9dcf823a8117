package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "HOUHOU_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "remote.base_url", typ: kString, env: "HOUHOU_REMOTE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Remote.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Remote.BaseURL },
	},
	{
		key: "remote.timeout", typ: kDuration, env: "HOUHOU_REMOTE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Remote.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Remote.Timeout },
	},
	{
		key: "storage.data_dir", typ: kString, env: "HOUHOU_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "HOUHOU_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "auth.local_enabled", typ: kBool, env: "HOUHOU_AUTH_LOCAL_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Auth.LocalEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Auth.LocalEnabled },
	},
	{
		key: "auth.demo_email", typ: kString, env: "HOUHOU_AUTH_DEMO_EMAIL",
		apply:   func(cfg *Config, v any) { cfg.Auth.DemoEmail = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.DemoEmail },
	},
	{
		key: "auth.demo_password", typ: kString, env: "HOUHOU_AUTH_DEMO_PASSWORD",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Auth.DemoPassword = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.DemoPassword },
	},
	{
		key: "chat.model", typ: kString, env: "HOUHOU_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Chat.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.Model },
	},
	{
		key: "chat.api_key", typ: kString, env: "HOUHOU_CHAT_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Chat.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.APIKey },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
