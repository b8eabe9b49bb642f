// Package transcribe turns audio bytes into text via the OpenAI Whisper
// API.
//
// Transcription degrades instead of failing: any API problem yields a
// bracketed sentinel string rather than an error, so a broken transcription
// backend never aborts audio ingestion. Callers that care must check
// IsSentinel before treating the result as real content.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// SentinelNotConfigured is returned when no API key is set.
const SentinelNotConfigured = "[Transcription not available - API key not configured]"

// Config holds transcription provider settings.
type Config struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model,omitempty"`
}

// Whisper transcribes audio through the OpenAI API.
type Whisper struct {
	client     openai.Client
	model      openai.AudioModel
	configured bool
	logger     *slog.Logger
}

// NewWhisper builds a Whisper transcriber. With an empty API key the
// transcriber stays usable but always returns SentinelNotConfigured.
func NewWhisper(cfg Config, logger *slog.Logger) *Whisper {
	model := openai.AudioModelWhisper1
	if cfg.Model != "" {
		model = openai.AudioModel(cfg.Model)
	}
	w := &Whisper{model: model, logger: logger}
	if cfg.APIKey != "" {
		w.client = openai.NewClient(option.WithAPIKey(cfg.APIKey))
		w.configured = true
	}
	return w
}

// Transcribe converts audio bytes to text. Never returns an error for API
// failures; those become a "[Transcription failed: ...]" sentinel.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, mimeType string) string {
	if !w.configured {
		if w.logger != nil {
			w.logger.Warn("transcription api key not configured, returning placeholder")
		}
		return SentinelNotConfigured
	}

	filename := "audio" + ExtensionForMime(mimeType)

	transcription, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: w.model,
		File:  openai.File(bytes.NewReader(audio), filename, mimeType),
	})
	if err != nil {
		if w.logger != nil {
			w.logger.Error("transcription failed", "error", err)
		}
		return fmt.Sprintf("[Transcription failed: %v]", err)
	}

	if strings.TrimSpace(transcription.Text) == "" {
		return "[Empty transcription]"
	}
	return transcription.Text
}

// IsSentinel reports whether a transcription result is a failure marker
// rather than real content.
func IsSentinel(transcription string) bool {
	return strings.HasPrefix(transcription, "[")
}

// ExtensionForMime maps common audio MIME types to file extensions. Voice
// notes arrive as OGG/Opus, which is also the fallback.
func ExtensionForMime(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "audio/ogg", "audio/ogg; codecs=opus":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4":
		return ".m4a"
	case "audio/wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	default:
		return ".ogg"
	}
}
