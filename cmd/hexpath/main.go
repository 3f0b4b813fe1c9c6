// Command hexpath serves the hex map editor API: sessions, path previews,
// player movement and description-driven terrain generation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/hexpath/internal/api"
	"github.com/talgya/hexpath/internal/config"
	"github.com/talgya/hexpath/internal/editor"
	"github.com/talgya/hexpath/internal/llm"
	"github.com/talgya/hexpath/internal/persistence"
	"github.com/talgya/hexpath/internal/world"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("HEXPATH_DEBUG") != "" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("hexpath starting",
		"road_cost", world.RoadCost,
		"terrains", world.NumTerrains,
		"default_radius", cfg.Session.DefaultRadius,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Proposal cache ────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if stats, err := db.Stats(); err == nil {
		slog.Info("database opened",
			"path", cfg.Database.Path,
			"cached_batches", humanize.Comma(int64(stats.Entries)),
			"generations", humanize.Comma(int64(stats.Generations)),
		)
	}
	if ttl := cfg.CacheTTL(); ttl > 0 {
		if n, err := db.Purge(ttl); err != nil {
			slog.Warn("cache purge failed", "error", err)
		} else if n > 0 {
			slog.Info("expired cache entries purged", "removed", n)
		}
	}

	// ── Sample map (sanity check of the noise generator) ──────────────
	sample := world.Generate(cfg.Session.DefaultRadius)
	rep := world.ApplyProposals(sample, editor.NoiseTerrain(cfg.GenConfig(cfg.Session.DefaultRadius)))
	for t, c := range world.TerrainCounts(sample) {
		slog.Debug("sample terrain", "type", t, "count", c)
	}
	slog.Info("noise generator ready", "hexes", humanize.Comma(int64(sample.HexCount())), "applied", rep.Applied, "roads", world.RoadCount(sample))

	// ── LLM Client ────────────────────────────────────────────────────
	llmClient := llm.NewClient(cfg.LLM.APIKey,
		llm.WithRateLimit(cfg.LLM.RateLimit),
		llm.WithTimeout(cfg.LLMTimeout()),
	)
	if llmClient != nil {
		slog.Info("LLM client enabled (Haiku)")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, terrain generation uses the noise fallback")
	}

	// ── Sessions ──────────────────────────────────────────────────────
	registry := editor.NewRegistry(cfg.IdleTimeout())
	go registry.RunSweeper(ctx, cfg.SweepInterval())

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Server.AdminKey == "" {
		slog.Warn("HEXPATH_ADMIN_KEY not set, admin endpoints are disabled")
	}
	apiServer := &api.Server{
		Sessions:          registry,
		LLM:               llmClient,
		DB:                db,
		Port:              cfg.Server.Port,
		AdminKey:          cfg.Server.AdminKey,
		CORSOrigins:       cfg.Server.CORSOrigins,
		DefaultRadius:     cfg.Session.DefaultRadius,
		GenConfig:         cfg.GenConfig,
		GeneratePerMinute: cfg.Generate.PerMinute,
	}
	apiServer.Start(ctx)

	fmt.Printf("\nhexpath is up: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
	fmt.Println("Ctrl+C to stop")

	<-ctx.Done()
	slog.Info("shutting down", "live_sessions", registry.Len())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	fmt.Println("hexpath stopped.")
}
