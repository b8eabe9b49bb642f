package transcribe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscribeWithoutAPIKey(t *testing.T) {
	w := NewWhisper(Config{}, nil)

	got := w.Transcribe(context.Background(), []byte("audio"), "audio/ogg")
	assert.Equal(t, SentinelNotConfigured, got)
	assert.True(t, IsSentinel(got))
}

func TestIsSentinel(t *testing.T) {
	tests := []struct {
		transcription string
		want          bool
	}{
		{"[Transcription failed: timeout]", true},
		{"[Empty transcription]", true},
		{SentinelNotConfigured, true},
		{"Buy milk tomorrow", false},
		{"", false},
		{"normal text with [brackets] inside", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSentinel(tt.transcription), "input: %q", tt.transcription)
	}
}

func TestExtensionForMime(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"audio/ogg", ".ogg"},
		{"audio/ogg; codecs=opus", ".ogg"},
		{"audio/mpeg", ".mp3"},
		{"audio/mp4", ".m4a"},
		{"audio/wav", ".wav"},
		{"audio/webm", ".webm"},
		{"audio/unknown", ".ogg"},
		{"AUDIO/WAV", ".wav"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtensionForMime(tt.mime), "mime: %s", tt.mime)
	}
}
