package puzzle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/konpigg/soupd/internal/domain"
	_ "modernc.org/sqlite"
)

// LocalNamespace stores generated puzzles in SQLite. The corpus is bounded:
// inserting past capacity evicts the oldest entries by insertion order.
type LocalNamespace struct {
	db      *sql.DB
	name    string
	maxSize int
}

// NewLocal opens (or creates) the local puzzle database.
func NewLocal(dbPath string, maxSize int) (*LocalNamespace, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("local namespace capacity must be positive, got %d", maxSize)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	ns := &LocalNamespace{db: db, name: string(domain.SourceLocal), maxSize: maxSize}
	if err := ns.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return ns, nil
}

func (n *LocalNamespace) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS puzzles (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		surface TEXT NOT NULL,
		bottom TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := n.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Name returns the namespace key.
func (n *LocalNamespace) Name() string { return n.name }

// Capacity returns the maximum stored-puzzle count.
func (n *LocalNamespace) Capacity() int { return n.maxSize }

// Ping verifies database connectivity.
func (n *LocalNamespace) Ping(ctx context.Context) error {
	return n.db.PingContext(ctx)
}

// Puzzles returns the full corpus in insertion order.
func (n *LocalNamespace) Puzzles(ctx context.Context) ([]domain.Puzzle, error) {
	query := `SELECT id, surface, bottom, created_at FROM puzzles ORDER BY seq`

	rows, err := n.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query puzzles: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close puzzle rows", "error", closeErr)
		}
	}()

	var puzzles []domain.Puzzle
	for rows.Next() {
		var p domain.Puzzle
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Surface, &p.Bottom, &createdAt); err != nil {
			return nil, fmt.Errorf("scan puzzle row: %w", err)
		}
		p.Source = domain.SourceLocal
		p.CreatedAt = time.Unix(createdAt, 0)
		puzzles = append(puzzles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate puzzles: %w", err)
	}
	return puzzles, nil
}

// Count returns the number of stored puzzles.
func (n *LocalNamespace) Count(ctx context.Context) (int, error) {
	var count int
	if err := n.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM puzzles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count puzzles: %w", err)
	}
	return count, nil
}

// Add inserts a puzzle and evicts the oldest entries past capacity. Insert
// and eviction run in one transaction so readers never observe an
// over-capacity corpus.
func (n *LocalNamespace) Add(ctx context.Context, p domain.Puzzle) error {
	if p.ID == "" {
		p.ID = domain.DeriveID(p.Surface)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	tx, err := n.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add puzzle: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO puzzles (id, surface, bottom, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		p.ID, p.Surface, p.Bottom, p.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert puzzle: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM puzzles WHERE seq IN (
			SELECT seq FROM puzzles ORDER BY seq DESC LIMIT -1 OFFSET ?
		)`, n.maxSize,
	)
	if err != nil {
		return fmt.Errorf("evict oldest puzzles: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add puzzle: %w", err)
	}

	if evicted, err := result.RowsAffected(); err == nil && evicted > 0 {
		slog.Info("Local corpus full, evicted oldest puzzles",
			"evicted", evicted, "capacity", n.maxSize)
	}
	return nil
}

// Close closes the database connection.
func (n *LocalNamespace) Close() error {
	if err := n.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
