package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/houhousishu/houhou/internal/api"
	"github.com/houhousishu/houhou/internal/config"
	"github.com/houhousishu/houhou/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the site API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server, backend and session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve the catalog over MCP on stdio")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "houhou.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "houhou version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pidPath := pidFilePath(cfg.Storage.DataDir)
	if newAPIClient(cfg.Server.Port).healthy(ctx) {
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("houhou is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("houhou is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	printStep("loading content from %s", cfg.Remote.BaseURL)
	if err := a.content.Refresh(ctx); err != nil {
		slog.Warn("initial content refresh failed", "error", err)
	}
	slog.Info("content ready",
		"backend", a.catalog.Backend(),
		"services", len(a.content.Services()),
		"resources", len(a.content.Resources()),
		"chat", a.companion.Enabled(),
	)

	siteHandler := api.NewSiteHandler(api.SiteDeps{
		Catalog:   a.catalog,
		Content:   a.content,
		Companion: a.companion,
		RemoteURL: cfg.Remote.BaseURL,
		Logger:    slog.Default().With("component", "api"),
	})

	topRouter := chi.NewRouter()
	topRouter.Mount("/", siteHandler)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           topRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Catalog: a.catalog, Content: a.content})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "houhou listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("houhou is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop houhou (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to houhou (PID %d)", pid)
	return nil
}

type serverStatus struct {
	Backend     string `json:"backend"`
	ChatEnabled bool   `json:"chat_enabled"`
}

func showStatus(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		client := newAPIClient(a.cfg.Server.Port)
		var st serverStatus
		if resp, err := client.get(ctx, "/api/status"); err != nil {
			printStatus("Server", "stopped")
		} else if err := decodeJSON(resp, &st); err != nil {
			printStatus("Server", "error (%v)", err)
		} else {
			printStatus("Server", "running on port %d", a.cfg.Server.Port)
			printStatus("Backend", "%s", st.Backend)
		}

		printStatus("Content API", "%s", a.cfg.Remote.BaseURL)
		printStatus("Data dir", "%s", a.cfg.Storage.DataDir)
		if applied, err := a.store.AppliedMigrations(); err == nil {
			printStatus("Schema", "%d migrations applied", len(applied))
		}
		services, sErr := a.store.Count(ctx, storage.Services)
		resources, rErr := a.store.Count(ctx, storage.Resources)
		if sErr == nil && rErr == nil {
			printStatus("Local store", "%d services, %d resources", services, resources)
		}

		s, err := a.catalog.Auth.Session(ctx)
		switch {
		case err != nil:
			printStatus("Session", "error (%v)", err)
		case s == nil:
			printStatus("Session", "signed out")
		case s.Token == "":
			printStatus("Session", "%s (local)", s.Email)
		default:
			printStatus("Session", "%s", s.Email)
		}

		if a.companion.Enabled() {
			printStatus("Chat", "enabled (%s)", a.cfg.Chat.Model)
		} else {
			printStatus("Chat", "disabled (set HOUHOU_CHAT_API_KEY)")
		}
		return nil
	})
}
