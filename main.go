package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"workspace-bridge/pkg/events"
	"workspace-bridge/pkg/handler"
	"workspace-bridge/pkg/rpc"
	"workspace-bridge/pkg/transport"
	"workspace-bridge/pkg/workspace"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	WorkspaceRoot string
	Transport     string
	Port          int
	LogFormat     string
	LogLevel      slog.Level
}

func main() {
	// A .env next to the binary can supply the env fallbacks below.
	_ = godotenv.Load()

	cfg := &Config{}
	flag.StringVar(&cfg.WorkspaceRoot, "workspace-root", os.Getenv("WORKSPACE_ROOT"), "Root directory of the assistant workspace to expose (env: WORKSPACE_ROOT)")
	flag.StringVar(&cfg.Transport, "transport", envOr("BRIDGE_TRANSPORT", "http"), "Transport to use: 'stdio' or 'http' (env: BRIDGE_TRANSPORT)")
	flag.IntVar(&cfg.Port, "port", envIntOr("PORT", 8080), "Port for HTTP transport (env: PORT)")
	flag.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: 'text' or 'json'")
	flag.String("log-level", "info", "Log level: 'debug', 'info', 'warn', 'error'")
	flag.Parse()

	if err := validateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	setupLogger(cfg)

	slog.Info("Starting workspace bridge",
		"version", "0.1.0",
		"transport", cfg.Transport,
		"workspace-root", cfg.WorkspaceRoot,
	)

	// --- Collaborators ---
	store, err := workspace.NewStore(cfg.WorkspaceRoot)
	if err != nil {
		slog.Error("Failed to initialize file store", "error", err)
		os.Exit(1)
	}

	var committer workspace.Committer
	committer, err = workspace.NewGitCommitter(store.Root())
	if err != nil {
		slog.Warn("Workspace has no git repository, changes will not be committed", "error", err)
		committer = workspace.LogCommitter{}
	}

	// --- Dispatcher ---
	dispatcher := rpc.NewDispatcher()

	if cfg.Transport == "http" {
		hub := events.NewHub(256)
		defer hub.Close()
		stopWatcher, err := events.StartFSWatcher(store.Root(), hub)
		if err != nil {
			slog.Warn("Failed to start filesystem watcher", "error", err)
		} else {
			defer stopWatcher()
		}
		handler.Register(dispatcher, store, committer, hub)
		if err := transport.RunHTTP(cfg.Port, dispatcher, hub); err != nil {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	} else {
		handler.Register(dispatcher, store, committer, nil)
		transport.RunStdio(dispatcher)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.WorkspaceRoot == "" {
		return fmt.Errorf("--workspace-root is required")
	}
	if cfg.Transport != "stdio" && cfg.Transport != "http" {
		return fmt.Errorf("--transport must be 'stdio' or 'http'")
	}
	return nil
}

func setupLogger(cfg *Config) {
	logLevelFlag := flag.Lookup("log-level").Value.String()
	logLevelMap := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	level, exists := logLevelMap[strings.ToLower(logLevelFlag)]
	if !exists {
		level = slog.LevelInfo
	}
	cfg.LogLevel = level

	var logHandler slog.Handler
	if cfg.LogFormat == "json" {
		logHandler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	} else {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	slog.SetDefault(slog.New(logHandler))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
