package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"github.com/savenote/savenote/internal/domain"
)

// Index is the SQLite log of everything the store has persisted. It is a
// secondary record: the files are the source of truth, the index serves
// queries (watch TUI, category counts).
type Index struct {
	db *sql.DB
}

// OpenIndex opens (and creates if needed) the SQLite index at path and
// ensures required tables exist.
func OpenIndex(ctx context.Context, path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite index path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS classified_log (
  id            TEXT PRIMARY KEY,
  category      TEXT NOT NULL,
  sender        TEXT,
  original      TEXT NOT NULL,
  extracted     TEXT,
  path          TEXT NOT NULL,
  processed_at  TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS audio_log (
  id          TEXT PRIMARY KEY,
  filename    TEXT NOT NULL,
  size_bytes  INTEGER NOT NULL,
  digest      TEXT NOT NULL,
  transcribed INTEGER NOT NULL DEFAULT 0,
  saved_at    TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS classified_log_processed_at_idx ON classified_log(processed_at);`,
		`CREATE INDEX IF NOT EXISTS classified_log_category_idx ON classified_log(category);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite index: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (ix *Index) Close() error { return ix.db.Close() }

// RecordClassified inserts one classified-item row.
func (ix *Index) RecordClassified(ctx context.Context, msg domain.ClassifiedMessage, path string) error {
	_, err := ix.db.ExecContext(ctx,
		`INSERT INTO classified_log (id, category, sender, original, extracted, path, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?);`,
		uuid.NewString(),
		string(msg.Category),
		msg.SenderID,
		msg.OriginalContent,
		msg.ExtractedData,
		path,
		msg.ProcessedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record classified item: %w", err)
	}
	return nil
}

// RecordAudio inserts one audio-blob row with its blake3 content digest.
func (ix *Index) RecordAudio(ctx context.Context, filename string, data []byte, transcribed bool) error {
	digest := blake3.Sum256(data)

	_, err := ix.db.ExecContext(ctx,
		`INSERT INTO audio_log (id, filename, size_bytes, digest, transcribed, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?);`,
		uuid.NewString(),
		filename,
		len(data),
		hex.EncodeToString(digest[:]),
		transcribed,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record audio blob: %w", err)
	}
	return nil
}

// Entry is one classified-item row, as the watch TUI displays it.
type Entry struct {
	ID          string
	Category    domain.Category
	Sender      string
	Original    string
	Extracted   string
	Path        string
	ProcessedAt time.Time
}

// Recent returns the latest n classified items, newest first.
func (ix *Index) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT id, category, sender, original, extracted, path, processed_at
		 FROM classified_log ORDER BY processed_at DESC, rowid DESC LIMIT ?;`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent items: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var category, processedAt string
		if err := rows.Scan(&e.ID, &category, &e.Sender, &e.Original, &e.Extracted, &e.Path, &processedAt); err != nil {
			return nil, fmt.Errorf("scan recent item: %w", err)
		}
		e.Category = domain.Category(category)
		if ts, err := time.Parse(time.RFC3339, processedAt); err == nil {
			e.ProcessedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CategoryCounts returns how many items each category has accumulated.
func (ix *Index) CategoryCounts(ctx context.Context) (map[domain.Category]int, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM classified_log GROUP BY category;`)
	if err != nil {
		return nil, fmt.Errorf("query category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Category]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[domain.Category(category)] = n
	}
	return counts, rows.Err()
}
