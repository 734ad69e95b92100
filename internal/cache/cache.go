// Package cache memoises accepted solves in SQLite, keyed by a hash of the
// parameters that determine the result.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/storage"
)

type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the cache database at path.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	c := &Cache{db: db}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS solves (
		key TEXT PRIMARY KEY,
		method TEXT NOT NULL,
		x_max REAL NOT NULL,
		shoot REAL NOT NULL,
		metadata TEXT NOT NULL,
		grid TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_solves_method ON solves(method);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Key hashes any JSON-encodable parameter set.
func Key(params any) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

type Entry struct {
	Key       string
	Meta      storage.RunMetadata
	Points    []bvp.Point
	CreatedAt time.Time
}

// Solution restores the cached profile with its warnings and truncation
// report.
func (e *Entry) Solution() (*bvp.Solution, error) {
	return bvp.RestoreRecord(e.Meta.Problem(), bvp.Method(e.Meta.Method), e.Meta.XMax, e.Points, e.Meta.Record())
}

func (c *Cache) Put(ctx context.Context, key string, meta storage.RunMetadata, pts []bvp.Point) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	gridJSON, err := json.Marshal(pts)
	if err != nil {
		return fmt.Errorf("encode grid: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO solves (key, method, x_max, shoot, metadata, grid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			method = excluded.method,
			x_max = excluded.x_max,
			shoot = excluded.shoot,
			metadata = excluded.metadata,
			grid = excluded.grid,
			created_at = excluded.created_at`,
		key, meta.Method, meta.XMax, meta.Shoot, string(metaJSON), string(gridJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store solve: %w", err)
	}
	return nil
}

// Get returns the entry for key; the boolean reports a hit.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var metaJSON, gridJSON string
	var created time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT metadata, grid, created_at FROM solves WHERE key = ?`, key).
		Scan(&metaJSON, &gridJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query solve: %w", err)
	}

	e := &Entry{Key: key, CreatedAt: created}
	if err := json.Unmarshal([]byte(metaJSON), &e.Meta); err != nil {
		return nil, false, fmt.Errorf("decode metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(gridJSON), &e.Points); err != nil {
		return nil, false, fmt.Errorf("decode grid: %w", err)
	}
	return e, true, nil
}

func (c *Cache) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM solves`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Cache) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx, `DELETE FROM solves`)
	return err
}
