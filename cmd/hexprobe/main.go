// Command hexprobe drives a running hexpath server: it opens a session,
// generates terrain from a description and walks the player to random
// tiles, logging what each search cost. Set HEXPROBE_INTERVAL to repeat.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexpath/internal/client"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	apiURL := envOrDefault("HEXPATH_API_URL", "http://localhost:8080")
	adminKey := os.Getenv("HEXPATH_ADMIN_KEY")
	description := envOrDefault("HEXPROBE_DESCRIPTION", "a river valley with a walled town")
	radius := envIntOrDefault("HEXPROBE_RADIUS", 6)
	moves := envIntOrDefault("HEXPROBE_MOVES", 20)
	intervalMin := envIntOrDefault("HEXPROBE_INTERVAL", 0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(apiURL, adminKey)

	slog.Info("waiting for hexpath API...", "api_url", apiURL)
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	err := c.WaitReady(waitCtx)
	cancel()
	if err != nil {
		slog.Error("hexpath API did not become ready", "error", err)
		os.Exit(1)
	}

	runProbe(ctx, c, description, radius, moves)
	if intervalMin <= 0 {
		return
	}

	ticker := time.NewTicker(time.Duration(intervalMin) * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runProbe(ctx, c, description, radius, moves)
		case <-ctx.Done():
			slog.Info("shutting down")
			fmt.Println("hexprobe stopped.")
			return
		}
	}
}

// runProbe executes one create, generate, walk cycle.
func runProbe(ctx context.Context, c *client.Client, description string, radius, moves int) {
	start := time.Now()
	m, err := c.CreateSession(ctx, radius)
	if err != nil {
		slog.Error("create session failed", "error", err)
		return
	}
	defer func() {
		if err := c.DeleteSession(ctx, m.ID); err != nil {
			slog.Warn("delete session failed", "error", err)
		}
	}()

	gen, err := c.Generate(ctx, m.ID, description)
	if err != nil {
		slog.Error("generate failed", "error", err)
		return
	}
	slog.Info("terrain generated",
		"session", m.ID,
		"source", gen.Source,
		"applied", gen.Report.Applied,
		"out_of_range", gen.Report.OutOfRange,
	)

	var passable []client.Coord
	for _, t := range gen.Map.Tiles {
		if t.Passable() {
			passable = append(passable, client.Coord{Q: t.Q, R: t.R})
		}
	}
	if len(passable) == 0 {
		slog.Warn("no passable tiles")
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	reached, expanded := 0, 0
	total := 0.0
	for i := 0; i < moves; i++ {
		goal := passable[rng.Intn(len(passable))]
		p, err := c.Move(ctx, m.ID, goal)
		if err != nil {
			slog.Error("move failed", "error", err)
			return
		}
		expanded += p.Expanded
		if p.Reached {
			reached++
			total += *p.Cost
		}
	}

	slog.Info("probe complete",
		"moves", moves,
		"reached", reached,
		"nodes_expanded", humanize.Comma(int64(expanded)),
		"total_cost", humanize.FormatFloat("#,###.##", total),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if st, err := c.Status(ctx); err == nil {
		slog.Info("server status", "sessions", st.Sessions, "cache_entries", st.CacheEntries, "up_since", st.Started)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
