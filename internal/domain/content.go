package domain

import "strings"

const (
	maxMessageIDLen = 500
	maxSenderIDLen  = 200
	maxTextLen      = 10000
)

// MessageID identifies a message within its source platform. Opaque,
// assumed unique per source.
type MessageID struct {
	value string
}

// NewMessageID validates and trims a raw message id.
func NewMessageID(raw string) (MessageID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return MessageID{}, ErrEmptyMessageID
	}
	if len(raw) > maxMessageIDLen {
		return MessageID{}, ErrMessageIDTooLong
	}
	return MessageID{value: trimmed}, nil
}

func (id MessageID) String() string { return id.value }
func (id MessageID) IsZero() bool   { return id.value == "" }

// SenderID identifies who sent a message: a phone number, email, or
// platform user id.
type SenderID struct {
	value string
}

// NewSenderID validates and trims a raw sender id.
func NewSenderID(raw string) (SenderID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SenderID{}, ErrEmptySenderID
	}
	if len(raw) > maxSenderIDLen {
		return SenderID{}, ErrSenderIDTooLong
	}
	return SenderID{value: trimmed}, nil
}

func (id SenderID) String() string { return id.value }
func (id SenderID) IsZero() bool   { return id.value == "" }

// TextContent is the body of a text message: non-empty, whitespace-trimmed,
// capped at 10k characters. Equality is by value.
type TextContent struct {
	value string
}

// NewTextContent validates and normalizes a raw text body.
func NewTextContent(raw string) (TextContent, error) {
	if strings.TrimSpace(raw) == "" {
		return TextContent{}, ErrEmptyText
	}
	if len(raw) > maxTextLen {
		return TextContent{}, ErrTextTooLong
	}
	return TextContent{value: strings.TrimSpace(raw)}, nil
}

func (t TextContent) Value() string  { return t.value }
func (t TextContent) String() string { return t.value }
func (t TextContent) IsZero() bool   { return t.value == "" }

// AudioContent holds the metadata of an audio message: the provider-side
// object id, its MIME type, and the optional content hash the provider
// reported.
type AudioContent struct {
	audioID  string
	mimeType string
	sha256   string
}

// NewAudioContent validates audio metadata. The MIME type must begin with
// "audio/".
func NewAudioContent(audioID, mimeType, sha256 string) (AudioContent, error) {
	if strings.TrimSpace(audioID) == "" {
		return AudioContent{}, ErrEmptyAudioID
	}
	if strings.TrimSpace(mimeType) == "" {
		return AudioContent{}, ErrEmptyMimeType
	}
	if !strings.HasPrefix(strings.ToLower(mimeType), "audio/") {
		return AudioContent{}, ErrInvalidMimeType
	}
	return AudioContent{
		audioID:  strings.TrimSpace(audioID),
		mimeType: strings.TrimSpace(mimeType),
		sha256:   strings.TrimSpace(sha256),
	}, nil
}

func (a AudioContent) AudioID() string  { return a.audioID }
func (a AudioContent) MimeType() string { return a.mimeType }
func (a AudioContent) SHA256() string   { return a.sha256 }
func (a AudioContent) IsZero() bool     { return a.audioID == "" }

func (a AudioContent) String() string {
	return "Audio: " + a.audioID + " (" + a.mimeType + ")"
}
