package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/savenote/savenote/internal/domain"
)

// Mapping failures, distinguishable with errors.Is. All are validation
// errors caused by the payload, never retried.
var (
	ErrInvalidPayload   = errors.New("whatsapp: payload is not valid JSON")
	ErrNoEntries        = errors.New("whatsapp: no entries in webhook payload")
	ErrNoChanges        = errors.New("whatsapp: no changes in webhook entry")
	ErrNoMessages       = errors.New("whatsapp: no messages in webhook change")
	ErrInvalidTimestamp = errors.New("whatsapp: invalid timestamp format")
	ErrEmptyText        = errors.New("whatsapp: text message body is empty")
	ErrNoAudioData      = errors.New("whatsapp: audio message has no audio data")
	ErrUnsupportedType  = errors.New("whatsapp: unsupported message type")
)

// Normalizer maps WhatsApp webhook payloads into the canonical ingest
// command. One normalizer exists per external provider; this one always
// stamps Source = WhatsApp.
type Normalizer struct{}

// NewNormalizer returns a ready Normalizer. Stateless and safe for
// concurrent use.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize unmarshals a raw webhook body and maps it to a command.
func (n *Normalizer) Normalize(rawBody []byte) (domain.IngestCommand, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return domain.IngestCommand{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return n.ToCommand(&payload)
}

// ToCommand maps a parsed payload to the canonical command. The provider
// delivers a tree (payload -> entries -> changes -> messages); only the
// first message of the first change of the first entry is taken. Multi-
// message batches per webhook call are not supported by this contract.
func (n *Normalizer) ToCommand(payload *WebhookPayload) (domain.IngestCommand, error) {
	if payload == nil || len(payload.Entry) == 0 {
		return domain.IngestCommand{}, ErrNoEntries
	}

	entry := payload.Entry[0]
	if len(entry.Changes) == 0 {
		return domain.IngestCommand{}, ErrNoChanges
	}

	change := entry.Changes[0]
	if len(change.Value.Messages) == 0 {
		return domain.IngestCommand{}, ErrNoMessages
	}

	msg := change.Value.Messages[0]

	// Unix epoch seconds as a base-10 string.
	unix, err := strconv.ParseInt(msg.Timestamp, 10, 64)
	if err != nil {
		return domain.IngestCommand{}, ErrInvalidTimestamp
	}
	timestamp := time.Unix(unix, 0).UTC()

	switch strings.ToLower(msg.Type) {
	case "text":
		return mapTextMessage(msg, timestamp)
	case "audio":
		return mapAudioMessage(msg, timestamp)
	default:
		return domain.IngestCommand{}, fmt.Errorf("%w: %s", ErrUnsupportedType, msg.Type)
	}
}

func mapTextMessage(msg Message, timestamp time.Time) (domain.IngestCommand, error) {
	if msg.Text == nil || strings.TrimSpace(msg.Text.Body) == "" {
		return domain.IngestCommand{}, ErrEmptyText
	}
	return domain.IngestCommand{
		MessageID: msg.ID,
		SenderID:  msg.From,
		Content:   msg.Text.Body,
		Type:      domain.TypeText,
		Source:    domain.SourceWhatsApp,
		Timestamp: timestamp,
	}, nil
}

func mapAudioMessage(msg Message, timestamp time.Time) (domain.IngestCommand, error) {
	if msg.Audio == nil || strings.TrimSpace(msg.Audio.MimeType) == "" {
		return domain.IngestCommand{}, ErrNoAudioData
	}
	return domain.IngestCommand{
		MessageID: msg.ID,
		SenderID:  msg.From,
		// The audio object id is the content for audio messages.
		Content:       msg.Audio.ID,
		Type:          domain.TypeAudio,
		Source:        domain.SourceWhatsApp,
		Timestamp:     timestamp,
		AudioMimeType: msg.Audio.MimeType,
		AudioSHA256:   msg.Audio.SHA256,
	}, nil
}
