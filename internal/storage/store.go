// Package storage persists classified items and raw audio. Items land as
// plain files under per-category folders, the way the notes are meant to be
// browsed, with a SQLite index alongside for queries and the watch TUI.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/savenote/savenote/internal/domain"
)

// Config holds storage settings.
type Config struct {
	// BasePath is the root of the notes tree. Category folders are created
	// under it on open.
	BasePath string `yaml:"base_path"`

	// IndexPath is the SQLite index location. Defaults to
	// <base_path>/savenote.db.
	IndexPath string `yaml:"index_path,omitempty"`
}

// folder names under BasePath.
const (
	filmsFolder = "films"
	tasksFolder = "tasks"
	notesFolder = "notes"
	linksFolder = "links"
	audioFolder = "audio"

	// Passwords append to one running log instead of discrete files.
	passwordsFile = "passwords.txt"
)

// Store writes classified items to the filesystem and records every write
// in the SQLite index. Safe for concurrent use; file writes within one
// request are sequential.
type Store struct {
	base   string
	index  *Index
	logger *slog.Logger
}

// Open prepares the notes tree and the index. Creates all category folders
// up front so a first save never races directory creation.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("storage base path is empty")
	}

	for _, dir := range []string{
		cfg.BasePath,
		filepath.Join(cfg.BasePath, filmsFolder),
		filepath.Join(cfg.BasePath, tasksFolder),
		filepath.Join(cfg.BasePath, notesFolder),
		filepath.Join(cfg.BasePath, linksFolder),
		filepath.Join(cfg.BasePath, audioFolder),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}

	indexPath := cfg.IndexPath
	if indexPath == "" {
		indexPath = filepath.Join(cfg.BasePath, "savenote.db")
	}
	index, err := OpenIndex(ctx, indexPath)
	if err != nil {
		return nil, err
	}

	return &Store{base: cfg.BasePath, index: index, logger: logger}, nil
}

// Close releases the index database.
func (s *Store) Close() error {
	return s.index.Close()
}

// Index exposes the query side for the watch TUI.
func (s *Store) Index() *Index { return s.index }

// SaveClassified files one classified item. Password items append to the
// running passwords log; everything else becomes a discrete file in its
// category folder.
func (s *Store) SaveClassified(ctx context.Context, msg domain.ClassifiedMessage) error {
	path := s.pathFor(msg)

	var err error
	if msg.Category == domain.CategoryPassword {
		err = appendLine(path, s.formatPasswordLine(msg))
	} else {
		err = os.WriteFile(path, []byte(formatItem(msg)), 0o644)
	}
	if err != nil {
		return fmt.Errorf("save %s item: %w", msg.Category, err)
	}

	if err := s.index.RecordClassified(ctx, msg, path); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("classified item saved", "category", msg.Category, "path", path)
	}
	return nil
}

// SaveAudio persists a raw audio blob and, when present, a sidecar .txt
// with its transcription.
func (s *Store) SaveAudio(ctx context.Context, filename string, data []byte, transcription string) error {
	audioPath := filepath.Join(s.base, audioFolder, filepath.Base(filename))

	if err := os.WriteFile(audioPath, data, 0o644); err != nil {
		return fmt.Errorf("save audio file: %w", err)
	}

	transcribed := false
	if strings.TrimSpace(transcription) != "" {
		sidecar := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".txt"
		if err := os.WriteFile(sidecar, []byte(transcription), 0o644); err != nil {
			return fmt.Errorf("save transcription sidecar: %w", err)
		}
		transcribed = true
	}

	if err := s.index.RecordAudio(ctx, filepath.Base(audioPath), data, transcribed); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("audio saved", "path", audioPath, "bytes", len(data), "transcribed", transcribed)
	}
	return nil
}

// pathFor maps a category to its destination path. Unknown falls back to
// the notes folder.
func (s *Store) pathFor(msg domain.ClassifiedMessage) string {
	if msg.Category == domain.CategoryPassword {
		return filepath.Join(s.base, passwordsFile)
	}

	var folder, prefix string
	switch msg.Category {
	case domain.CategoryFilm:
		folder, prefix = filmsFolder, "film"
	case domain.CategoryTask:
		folder, prefix = tasksFolder, "task"
	case domain.CategoryLink:
		folder, prefix = linksFolder, "link"
	case domain.CategoryAudio:
		folder, prefix = audioFolder, "audio_note"
	default:
		folder, prefix = notesFolder, "note"
	}

	// Short uuid fragment keeps two items filed within the same second from
	// colliding.
	name := fmt.Sprintf("%s_%s_%s.txt",
		prefix,
		msg.ProcessedAt.UTC().Format("20060102_150405"),
		uuid.NewString()[:8],
	)
	return filepath.Join(s.base, folder, name)
}

func (s *Store) formatPasswordLine(msg domain.ClassifiedMessage) string {
	sender := msg.SenderID
	if sender == "" {
		sender = "Unknown"
	}
	return fmt.Sprintf("[%s] From: %s | %s",
		msg.ProcessedAt.UTC().Format("2006-01-02 15:04:05"),
		sender,
		msg.OriginalContent,
	)
}

func formatItem(msg domain.ClassifiedMessage) string {
	sender := msg.SenderID
	if sender == "" {
		sender = "Unknown"
	}
	return fmt.Sprintf("Date: %s\nFrom: %s\nCategory: %s\n---\n%s\n",
		msg.ProcessedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		sender,
		msg.Category,
		msg.OriginalContent,
	)
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(line + "\n")
	return err
}

// AudioFilename generates the stored filename for a raw audio blob.
func AudioFilename(messageID, mimeExt string, now time.Time) string {
	id := sanitize(messageID)
	if id == "" {
		id = uuid.NewString()[:8]
	}
	return fmt.Sprintf("audio_%s_%s%s", id, now.UTC().Format("20060102_150405"), mimeExt)
}

// sanitize keeps filenames portable: anything outside [a-zA-Z0-9._-] maps
// to '_'.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
