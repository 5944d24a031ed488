// alit chat - terminal client for the Alit assistant and the shared chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/alit-chat/internal/assistant"
	"github.com/jeranaias/alit-chat/internal/auth"
	"github.com/jeranaias/alit-chat/internal/chat"
	"github.com/jeranaias/alit-chat/internal/cli"
	"github.com/jeranaias/alit-chat/internal/config"
	"github.com/jeranaias/alit-chat/internal/global"
	"github.com/jeranaias/alit-chat/internal/ollama"
	"github.com/jeranaias/alit-chat/internal/ratelimit"
	"github.com/jeranaias/alit-chat/internal/session"
	"github.com/jeranaias/alit-chat/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "config file path (default ~/.alit/config.toml)")
		serverURL   = flag.String("server", "", "chat server base URL (overrides config)")
		model       = flag.String("model", "", "assistant model (overrides config)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("alit-chat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configPath, *serverURL, *model); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, serverURL, model string) error {
	// ==========================================================================
	// CONFIGURATION
	// ==========================================================================

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	cfg.ApplyEnvOverrides()

	// CLI flags win over both file and environment
	if serverURL != "" {
		cfg.Server.BaseURL = serverURL
	}
	if model != "" {
		cfg.Assistant.Model = model
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ==========================================================================
	// STORAGE AND SESSION
	// ==========================================================================

	kv, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	sessions := session.NewStore(kv)
	if _, err := sessions.Load(); err != nil {
		return err
	}

	// ==========================================================================
	// CLIENTS
	// ==========================================================================

	authClient := auth.NewClient(cfg.Server.BaseURL)
	authClient.SetTokenSource(sessions.Token)
	flow := auth.NewFlow(authClient, sessions)

	ctx := context.Background()

	// A stored session is only trusted after the server confirms it.
	if sessions.Token() != "" {
		restoreCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if sessions.RestoreFromServer(restoreCtx, authClient) {
			flow.MarkLoggedIn()
		}
		cancel()
	}

	ollamaClient := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Server.BaseURL,
		DefaultModel: cfg.Assistant.Model,
	})

	conversations := chat.NewStore()
	limiter := ratelimit.New(cfg.RequestDelay())

	pipeline := assistant.NewPipeline(ollamaClient, limiter, conversations, assistant.Config{
		Model:         cfg.Assistant.Model,
		SystemPrompt:  cfg.Assistant.SystemPrompt,
		HistoryWindow: cfg.Assistant.HistoryWindow,
		Temperature:   cfg.Assistant.Temperature,
		TopP:          cfg.Assistant.TopP,
		NumPredict:    cfg.Assistant.NumPredict,
	})

	feed := global.NewSync(cfg.Server.BaseURL, sessions, cfg.PollInterval(), cfg.Global.FetchLimit)

	// ==========================================================================
	// SHELL
	// ==========================================================================

	shell := cli.NewShell(flow, sessions, pipeline, conversations, feed)
	return shell.Run(ctx)
}

// openStorage picks the session persistence backend from config.
func openStorage(cfg *config.Config) (storage.KV, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		path := cfg.Storage.Path
		if path == "" {
			dir, err := config.ConfigDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "state.db")
		}
		return storage.NewSQLiteStore(path)
	default:
		if cfg.Storage.Path != "" {
			return storage.NewFileStoreWithDir(cfg.Storage.Path)
		}
		return storage.NewFileStore()
	}
}
