package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/houhousishu/houhou/internal/catalog"
	"github.com/houhousishu/houhou/internal/companion"
	"github.com/houhousishu/houhou/internal/config"
	"github.com/houhousishu/houhou/internal/remote"
	"github.com/houhousishu/houhou/internal/storage"
)

var errSignInRequired = errors.New("sign in required: run 'houhou login' first")

// app is everything a command needs, built from config for one invocation.
type app struct {
	cfg       config.Config
	store     *storage.Store
	catalog   *catalog.Facade
	content   *catalog.Content
	companion *companion.Companion
}

// openApp loads config and builds the app. Tests replace it.
var openApp = func(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)
	return newApp(ctx, cfg)
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	var local catalog.LocalAuthenticator = catalog.NoLocalAuth{}
	if cfg.Auth.LocalEnabled {
		local = catalog.DemoAuthenticator{Email: cfg.Auth.DemoEmail, Password: cfg.Auth.DemoPassword}
	}

	facade := catalog.New(catalog.Deps{
		Store:     store,
		Remote:    remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout, catalog.SessionTokens{Store: store}),
		LocalAuth: local,
		Logger:    slog.Default(),
	})

	var gen companion.Generator
	if cfg.ChatEnabled() {
		g, err := companion.NewGenAIGenerator(ctx, cfg.Chat.APIKey, cfg.Chat.Model)
		if err != nil {
			slog.Warn("chat disabled", "error", err)
		} else {
			gen = g
		}
	}

	return &app{
		cfg:       cfg,
		store:     store,
		catalog:   facade,
		content:   catalog.NewContent(facade),
		companion: companion.New(gen, slog.Default()),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) requireSession(ctx context.Context) (*catalog.Session, error) {
	s, err := a.catalog.Auth.Session(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errSignInRequired
	}
	return s, nil
}

// withApp opens the app, runs fn and closes it.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()
	return fn(a)
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}
