// Package persistence provides the SQLite store for generated terrain
// proposal batches and the generation log. Maps themselves are never saved.
package persistence

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexpath/internal/world"
)

// DB wraps a SQLite connection for the proposal cache.
type DB struct {
	conn *sqlx.DB
}

// Generation is one entry of the generation log.
type Generation struct {
	ID          int64     `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	Description string    `db:"description" json:"description"`
	Radius      int       `db:"radius" json:"radius"`
	Source      string    `db:"source" json:"source"`
	Applied     int       `db:"applied" json:"applied"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Stats summarises cache contents.
type Stats struct {
	Entries     int `db:"entries" json:"entries"`
	Generations int `db:"generations" json:"generations"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS proposal_cache (
		prompt_hash TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		radius INTEGER NOT NULL,
		proposals_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS generations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		description TEXT NOT NULL,
		radius INTEGER NOT NULL,
		source TEXT NOT NULL,
		applied INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_generations_session ON generations(session_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// PromptHash keys a cache entry. Descriptions differing only in case or
// surrounding whitespace share an entry.
func PromptHash(description string, radius int) string {
	norm := strings.ToLower(strings.TrimSpace(description))
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", radius, norm)))
	return hex.EncodeToString(sum[:])
}

// GetProposals looks up a cached batch. A miss returns (nil, false, nil).
func (db *DB) GetProposals(description string, radius int) ([]world.Proposal, bool, error) {
	var raw string
	err := db.conn.Get(&raw,
		"SELECT proposals_json FROM proposal_cache WHERE prompt_hash = ?",
		PromptHash(description, radius),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get proposals: %w", err)
	}

	var proposals []world.Proposal
	if err := json.Unmarshal([]byte(raw), &proposals); err != nil {
		return nil, false, fmt.Errorf("unmarshal proposals: %w", err)
	}
	return proposals, true, nil
}

// PutProposals stores a batch, replacing any earlier entry for the same prompt.
func (db *DB) PutProposals(description string, radius int, proposals []world.Proposal) error {
	if proposals == nil {
		proposals = []world.Proposal{}
	}
	data, err := json.Marshal(proposals)
	if err != nil {
		return fmt.Errorf("marshal proposals: %w", err)
	}
	_, err = db.conn.Exec(
		`INSERT OR REPLACE INTO proposal_cache
			(prompt_hash, description, radius, proposals_json, created_at)
			VALUES (?, ?, ?, ?, ?)`,
		PromptHash(description, radius), description, radius, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put proposals: %w", err)
	}
	slog.Debug("cached proposals", "radius", radius, "count", len(proposals))
	return nil
}

// LogGeneration appends an entry to the generation log.
func (db *DB) LogGeneration(g Generation) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.NamedExec(
		`INSERT INTO generations (session_id, description, radius, source, applied, created_at)
			VALUES (:session_id, :description, :radius, :source, :applied, :created_at)`,
		g,
	)
	if err != nil {
		return fmt.Errorf("log generation: %w", err)
	}
	return nil
}

// RecentGenerations returns the most recent N log entries, newest first.
func (db *DB) RecentGenerations(limit int) ([]Generation, error) {
	var gens []Generation
	err := db.conn.Select(&gens,
		`SELECT id, session_id, description, radius, source, applied, created_at
			FROM generations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent generations: %w", err)
	}
	return gens, nil
}

// Stats counts cache entries and logged generations.
func (db *DB) Stats() (Stats, error) {
	var s Stats
	err := db.conn.Get(&s, `SELECT
		(SELECT COUNT(*) FROM proposal_cache) AS entries,
		(SELECT COUNT(*) FROM generations) AS generations`)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return s, nil
}

// Purge drops cache entries older than maxAge and returns how many went.
func (db *DB) Purge(maxAge time.Duration) (int64, error) {
	res, err := db.conn.Exec(
		"DELETE FROM proposal_cache WHERE created_at < ?",
		time.Now().UTC().Add(-maxAge),
	)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}
