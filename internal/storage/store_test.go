package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savenote/savenote/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{BasePath: t.TempDir()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func classified(category domain.Category, content string) domain.ClassifiedMessage {
	return domain.ClassifiedMessage{
		OriginalContent: content,
		Category:        category,
		ExtractedData:   content,
		ProcessedAt:     time.Now().UTC(),
		SenderID:        "34600111222",
	}
}

func TestOpenCreatesCategoryFolders(t *testing.T) {
	base := t.TempDir()
	s, err := Open(context.Background(), Config{BasePath: base}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for _, dir := range []string{"films", "tasks", "notes", "links", "audio"} {
		info, err := os.Stat(filepath.Join(base, dir))
		require.NoError(t, err, "folder %s should exist", dir)
		assert.True(t, info.IsDir())
	}
}

func TestSaveClassifiedDiscreteFile(t *testing.T) {
	s := openTestStore(t)

	err := s.SaveClassified(context.Background(), classified(domain.CategoryNote, "remember the milk"))
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(s.base, "notes", "note_*.txt"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "remember the milk")
	assert.Contains(t, string(data), "Category: note")
	assert.Contains(t, string(data), "From: 34600111222")
}

func TestSaveClassifiedPasswordAppends(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveClassified(context.Background(), classified(domain.CategoryPassword, "pass: one")))
	require.NoError(t, s.SaveClassified(context.Background(), classified(domain.CategoryPassword, "pass: two")))

	data, err := os.ReadFile(filepath.Join(s.base, "passwords.txt"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2, "password items append to one running log")
	assert.Contains(t, lines[0], "pass: one")
	assert.Contains(t, lines[1], "pass: two")

	// No discrete password files anywhere.
	matches, _ := filepath.Glob(filepath.Join(s.base, "*", "password_*.txt"))
	assert.Empty(t, matches)
}

func TestSaveClassifiedCategoryDestinations(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		category domain.Category
		folder   string
		prefix   string
	}{
		{domain.CategoryFilm, "films", "film_"},
		{domain.CategoryTask, "tasks", "task_"},
		{domain.CategoryLink, "links", "link_"},
		{domain.CategoryAudio, "audio", "audio_note_"},
		{domain.CategoryUnknown, "notes", "note_"},
	}

	for _, tt := range tests {
		require.NoError(t, s.SaveClassified(context.Background(), classified(tt.category, "content")))
		matches, err := filepath.Glob(filepath.Join(s.base, tt.folder, tt.prefix+"*.txt"))
		require.NoError(t, err)
		assert.NotEmpty(t, matches, "category %s should land in %s/%s*", tt.category, tt.folder, tt.prefix)
	}
}

func TestSaveClassifiedNoCollisionSameSecond(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		msg := classified(domain.CategoryNote, "same second")
		msg.ProcessedAt = now
		require.NoError(t, s.SaveClassified(context.Background(), msg))
	}

	matches, err := filepath.Glob(filepath.Join(s.base, "notes", "note_*.txt"))
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestSaveAudioWithTranscription(t *testing.T) {
	s := openTestStore(t)

	err := s.SaveAudio(context.Background(), "audio_msg1.ogg", []byte("ogg-bytes"), "Buy milk tomorrow")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.base, "audio", "audio_msg1.ogg"))
	require.NoError(t, err)
	assert.Equal(t, "ogg-bytes", string(data))

	sidecar, err := os.ReadFile(filepath.Join(s.base, "audio", "audio_msg1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Buy milk tomorrow", string(sidecar))
}

func TestSaveAudioWithoutTranscription(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveAudio(context.Background(), "audio_msg2.ogg", []byte("bytes"), ""))

	_, err := os.Stat(filepath.Join(s.base, "audio", "audio_msg2.txt"))
	assert.True(t, os.IsNotExist(err), "no sidecar without transcription")
}

func TestIndexRecordsAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveClassified(ctx, classified(domain.CategoryLink, "see https://example.com")))
	require.NoError(t, s.SaveClassified(ctx, classified(domain.CategoryNote, "a note")))
	require.NoError(t, s.SaveAudio(ctx, "a.ogg", []byte("audio"), "words"))

	entries, err := s.Index().Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "34600111222", entries[0].Sender)
	assert.False(t, entries[0].ProcessedAt.IsZero())

	counts, err := s.Index().CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.CategoryLink])
	assert.Equal(t, 1, counts[domain.CategoryNote])
}

func TestIndexRecentLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveClassified(ctx, classified(domain.CategoryNote, "n")))
	}

	entries, err := s.Index().Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestAudioFilename(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 30, 45, 0, time.UTC)

	name := AudioFilename("wamid.ABC/123", ".ogg", now)
	assert.Equal(t, "audio_wamid.ABC_123_20250301_123045.ogg", name)

	// Empty id still yields a usable name.
	name = AudioFilename("", ".ogg", now)
	assert.True(t, strings.HasPrefix(name, "audio_"))
	assert.True(t, strings.HasSuffix(name, ".ogg"))
}
