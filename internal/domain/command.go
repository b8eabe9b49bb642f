package domain

import "time"

// IngestCommand is the canonical, provider-agnostic representation of one
// inbound message, produced by a platform normalizer and consumed once by
// entity construction. Transient: it is never persisted.
type IngestCommand struct {
	MessageID string
	SenderID  string

	// Content is the text body for text messages, or the provider-side
	// audio object id for audio messages.
	Content string

	Type      MessageType
	Source    Source
	Timestamp time.Time

	// Audio metadata, set only when Type is TypeAudio.
	AudioMimeType string
	AudioSHA256   string
}
