// Package domain holds the platform-agnostic message model: value objects,
// the Message entity, and the classification taxonomy. Nothing here knows
// about WhatsApp payload shapes, HTTP, or storage.
package domain

import "time"

// MessageType distinguishes the two content shapes a message can carry.
type MessageType int

const (
	TypeText MessageType = iota
	TypeAudio
)

func (t MessageType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Source identifies the platform a message arrived from.
type Source string

const (
	SourceWhatsApp  Source = "whatsapp"
	SourceWebApp    Source = "webapp"
	SourceMobileApp Source = "mobileapp"
	SourceAPI       Source = "api"
)

// clockSkewTolerance bounds how far in the future an inbound timestamp may
// be before construction rejects it as malformed or forged.
const clockSkewTolerance = 5 * time.Minute

// Message is the validated, immutable entity built from one inbound event.
// Exactly one of text/audio content is set, matching Type. Construct via
// NewTextMessage or NewAudioMessage; a failed construction returns an error,
// never a half-valid entity.
type Message struct {
	id        MessageID
	sender    SenderID
	typ       MessageType
	source    Source
	timestamp time.Time

	text  TextContent
	audio AudioContent
}

// NewTextMessage builds a text message. Fails when any value object is the
// zero value or the timestamp is more than 5 minutes ahead of now.
func NewTextMessage(id MessageID, sender SenderID, source Source, timestamp time.Time, text TextContent) (*Message, error) {
	if id.IsZero() {
		return nil, ErrEmptyMessageID
	}
	if sender.IsZero() {
		return nil, ErrEmptySenderID
	}
	if text.IsZero() {
		return nil, ErrMissingContent
	}
	if timestamp.After(time.Now().UTC().Add(clockSkewTolerance)) {
		return nil, ErrFutureTimestamp
	}
	return &Message{
		id:        id,
		sender:    sender,
		typ:       TypeText,
		source:    source,
		timestamp: timestamp.UTC(),
		text:      text,
	}, nil
}

// NewAudioMessage builds an audio message. Same validation rules as
// NewTextMessage.
func NewAudioMessage(id MessageID, sender SenderID, source Source, timestamp time.Time, audio AudioContent) (*Message, error) {
	if id.IsZero() {
		return nil, ErrEmptyMessageID
	}
	if sender.IsZero() {
		return nil, ErrEmptySenderID
	}
	if audio.IsZero() {
		return nil, ErrMissingContent
	}
	if timestamp.After(time.Now().UTC().Add(clockSkewTolerance)) {
		return nil, ErrFutureTimestamp
	}
	return &Message{
		id:        id,
		sender:    sender,
		typ:       TypeAudio,
		source:    source,
		timestamp: timestamp.UTC(),
		audio:     audio,
	}, nil
}

func (m *Message) ID() MessageID        { return m.id }
func (m *Message) Sender() SenderID     { return m.sender }
func (m *Message) Type() MessageType    { return m.typ }
func (m *Message) Source() Source       { return m.source }
func (m *Message) Timestamp() time.Time { return m.timestamp }
func (m *Message) Text() TextContent    { return m.text }
func (m *Message) Audio() AudioContent  { return m.audio }

// IsValid re-checks the content-exclusivity invariant: a text message has
// text content and no audio content, and vice versa. The factories cannot
// produce a violating entity, but the pipeline checks anyway before trusting
// one; treat a false here as a programming error, not bad user input.
func (m *Message) IsValid() bool {
	switch m.typ {
	case TypeText:
		return !m.text.IsZero() && m.audio.IsZero()
	case TypeAudio:
		return !m.audio.IsZero() && m.text.IsZero()
	default:
		return false
	}
}

// ContentDisplay returns a human-readable rendering of the content.
func (m *Message) ContentDisplay() string {
	switch m.typ {
	case TypeText:
		return m.text.Value()
	case TypeAudio:
		return m.audio.String()
	default:
		return "[unknown content type]"
	}
}
