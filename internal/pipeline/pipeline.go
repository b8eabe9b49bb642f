// Package pipeline orchestrates ingestion of one inbound webhook event:
// signature verification, payload normalization, domain entity construction
// and validation, classification, and dispatch to storage. Each stage
// either advances or short-circuits to a rejected result; failures are
// contained per message and never abort the process.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/savenote/savenote/internal/classify"
	"github.com/savenote/savenote/internal/dedupe"
	"github.com/savenote/savenote/internal/domain"
	"github.com/savenote/savenote/internal/metrics"
	"github.com/savenote/savenote/internal/storage"
	"github.com/savenote/savenote/internal/transcribe"
	"github.com/savenote/savenote/internal/webhook"
	"github.com/savenote/savenote/internal/whatsapp"
)

// Stage names the linear states one inbound event moves through. Terminal
// success is StageDispatched; a failure leaves Result.Stage at the stage
// that rejected the event.
type Stage string

const (
	StageReceived          Stage = "received"
	StageSignatureVerified Stage = "signature_verified"
	StageNormalized        Stage = "normalized"
	StageEntityConstructed Stage = "entity_constructed"
	StageValidated         Stage = "validated"
	StageClassified        Stage = "classified"
	StageDispatched        Stage = "dispatched"
)

// Result is the outcome of processing one event.
type Result struct {
	// Stage is the terminal stage: StageDispatched on success, otherwise
	// the stage at which processing was rejected.
	Stage Stage

	// MessageID is set once normalization has succeeded.
	MessageID string

	// Category is set when a classified item was persisted.
	Category domain.Category

	// Duplicate marks an event suppressed by the idempotency cache.
	Duplicate bool

	Err error
}

// Rejected reports whether processing terminated with a failure.
func (r Result) Rejected() bool { return r.Err != nil }

// Ports the pipeline drives. Interfaces are defined here, on the consumer
// side; the whatsapp, transcribe, and storage packages satisfy them.

// Normalizer maps a raw provider payload into the canonical command.
type Normalizer interface {
	Normalize(rawBody []byte) (domain.IngestCommand, error)
}

// MediaDownloader fetches the raw bytes of an audio object by provider id.
type MediaDownloader interface {
	Download(ctx context.Context, mediaID string) ([]byte, error)
}

// Transcriber converts audio bytes to text. It never fails hard: a broken
// backend yields a bracketed sentinel string the pipeline must check for.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) string
}

// Store persists classified items and raw audio.
type Store interface {
	SaveClassified(ctx context.Context, msg domain.ClassifiedMessage) error
	SaveAudio(ctx context.Context, filename string, data []byte, transcription string) error
}

// Classifier assigns one category to non-blank text.
type Classifier interface {
	Classify(content, senderID string) (domain.ClassifiedMessage, error)
}

// Notifier sends an optional acknowledgement back to the sender.
type Notifier interface {
	SendText(ctx context.Context, to, body string) error
}

// Config holds the read-only settings the pipeline consults per event.
type Config struct {
	// Secret signs inbound webhooks. In production it must be set; in
	// development verification is skipped when it is absent.
	Secret string

	// Production selects the fail-closed signature policy.
	Production bool

	// AckMessage, when non-empty and a Notifier is wired, is sent back to
	// the sender after a successful dispatch. Best effort.
	AckMessage string
}

// Deps bundles the pipeline's collaborators. Deduper, Notifier, and Metrics
// are optional.
type Deps struct {
	Normalizer  Normalizer
	Classifier  Classifier
	Store       Store
	Media       MediaDownloader
	Transcriber Transcriber
	Deduper     dedupe.Deduper
	Notifier    Notifier
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Pipeline processes inbound events. Stateless across events apart from the
// read-only config; safe for concurrent use.
type Pipeline struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

// New builds a pipeline. Normalizer, Classifier, Store, Media, and
// Transcriber are required.
func New(cfg Config, deps Deps) *Pipeline {
	if deps.Deduper == nil {
		deps.Deduper = dedupe.Noop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, deps: deps, logger: logger}
}

// Process runs one raw webhook body through every stage. It always returns
// a Result; it never panics across this boundary.
func (p *Pipeline) Process(ctx context.Context, rawBody []byte, signatureHeader string) Result {
	start := time.Now()
	res := p.process(ctx, rawBody, signatureHeader)
	p.observe(res, time.Since(start))
	return res
}

func (p *Pipeline) process(ctx context.Context, rawBody []byte, signatureHeader string) Result {
	// Signature verification. Fail closed in production when no secret is
	// configured; skip only in development with no secret.
	if p.cfg.Secret == "" && p.cfg.Production {
		return Result{Stage: StageSignatureVerified, Err: webhook.ErrMissingSecret}
	}
	if p.cfg.Secret != "" {
		if err := webhook.Verify(rawBody, signatureHeader, p.cfg.Secret); err != nil {
			p.logger.Warn("signature verification failed", "error", err)
			return Result{Stage: StageSignatureVerified, Err: err}
		}
	}

	cmd, err := p.deps.Normalizer.Normalize(rawBody)
	if err != nil {
		p.logger.Warn("payload normalization failed", "error", err)
		return Result{Stage: StageNormalized, Err: err}
	}

	res := Result{MessageID: cmd.MessageID}

	if seen, err := p.deps.Deduper.Seen(ctx, string(cmd.Source), cmd.MessageID); err != nil {
		// Cache trouble must not drop messages; process anyway.
		p.logger.Warn("dedupe check failed, processing anyway", "error", err, "message_id", cmd.MessageID)
	} else if seen {
		p.logger.Info("duplicate delivery suppressed", "message_id", cmd.MessageID)
		res.Stage = StageDispatched
		res.Duplicate = true
		return res
	}

	msg, err := p.buildEntity(cmd)
	if err != nil {
		p.logger.Warn("entity construction failed", "error", err, "message_id", cmd.MessageID)
		res.Stage = StageEntityConstructed
		res.Err = err
		return res
	}

	// Programming-error guard, not user input validation: a constructed
	// entity with inconsistent content must never reach dispatch.
	if !msg.IsValid() {
		p.logger.Error("entity failed validity check", "message_id", cmd.MessageID, "type", msg.Type().String())
		res.Stage = StageValidated
		res.Err = domain.ErrMissingContent
		return res
	}

	switch msg.Type() {
	case domain.TypeAudio:
		res = p.processAudio(ctx, msg, res)
	default:
		res = p.processText(ctx, msg, res)
	}

	if !res.Rejected() {
		p.acknowledge(ctx, msg)
	}
	return res
}

// buildEntity constructs the validated domain entity from the command.
func (p *Pipeline) buildEntity(cmd domain.IngestCommand) (*domain.Message, error) {
	id, err := domain.NewMessageID(cmd.MessageID)
	if err != nil {
		return nil, err
	}
	sender, err := domain.NewSenderID(cmd.SenderID)
	if err != nil {
		return nil, err
	}

	if cmd.Type == domain.TypeAudio {
		audio, err := domain.NewAudioContent(cmd.Content, cmd.AudioMimeType, cmd.AudioSHA256)
		if err != nil {
			return nil, err
		}
		return domain.NewAudioMessage(id, sender, cmd.Source, cmd.Timestamp, audio)
	}

	text, err := domain.NewTextContent(cmd.Content)
	if err != nil {
		return nil, err
	}
	return domain.NewTextMessage(id, sender, cmd.Source, cmd.Timestamp, text)
}

func (p *Pipeline) processText(ctx context.Context, msg *domain.Message, res Result) Result {
	classified, err := p.deps.Classifier.Classify(msg.Text().Value(), msg.Sender().String())
	if err != nil {
		res.Stage = StageClassified
		res.Err = err
		return res
	}

	if err := p.deps.Store.SaveClassified(ctx, classified); err != nil {
		p.logger.Error("storage write failed", "error", err, "message_id", res.MessageID)
		res.Stage = StageDispatched
		res.Err = err
		return res
	}

	p.logger.Info("text message dispatched",
		"message_id", res.MessageID,
		"category", classified.Category,
	)
	res.Stage = StageDispatched
	res.Category = classified.Category
	return res
}

func (p *Pipeline) processAudio(ctx context.Context, msg *domain.Message, res Result) Result {
	audio := msg.Audio()

	data, err := p.deps.Media.Download(ctx, audio.AudioID())
	if err != nil {
		p.logger.Error("media download failed", "error", err, "audio_id", audio.AudioID())
		res.Stage = StageDispatched
		res.Err = err
		return res
	}

	transcription := p.deps.Transcriber.Transcribe(ctx, data, audio.MimeType())

	filename := storage.AudioFilename(
		msg.ID().String(),
		transcribe.ExtensionForMime(audio.MimeType()),
		time.Now().UTC(),
	)
	if err := p.deps.Store.SaveAudio(ctx, filename, data, transcription); err != nil {
		p.logger.Error("audio storage write failed", "error", err, "message_id", res.MessageID)
		res.Stage = StageDispatched
		res.Err = err
		return res
	}

	// A usable transcript is additionally filed as a classified item, always
	// under the Audio category: audio-derived notes are filed by origin, not
	// by whatever keywords the transcript happens to contain.
	if !transcribe.IsSentinel(transcription) {
		classified, err := p.deps.Classifier.Classify(transcription, msg.Sender().String())
		if err != nil {
			res.Stage = StageClassified
			res.Err = err
			return res
		}
		classified.Category = domain.CategoryAudio

		if err := p.deps.Store.SaveClassified(ctx, classified); err != nil {
			p.logger.Error("transcript storage write failed", "error", err, "message_id", res.MessageID)
			res.Stage = StageDispatched
			res.Err = err
			return res
		}
		res.Category = domain.CategoryAudio
	}

	p.logger.Info("audio message dispatched",
		"message_id", res.MessageID,
		"bytes", len(data),
		"transcribed", !transcribe.IsSentinel(transcription),
	)
	res.Stage = StageDispatched
	return res
}

// acknowledge sends the optional receipt confirmation. Failures are logged
// and swallowed; the item is already persisted.
func (p *Pipeline) acknowledge(ctx context.Context, msg *domain.Message) {
	if p.deps.Notifier == nil || p.cfg.AckMessage == "" {
		return
	}
	if err := p.deps.Notifier.SendText(ctx, msg.Sender().String(), p.cfg.AckMessage); err != nil {
		p.logger.Warn("acknowledgement send failed", "error", err, "to", msg.Sender().String())
	}
}

func (p *Pipeline) observe(res Result, elapsed time.Duration) {
	m := p.deps.Metrics
	if m == nil {
		return
	}
	m.PipelineSeconds.Observe(elapsed.Seconds())
	if res.Rejected() {
		m.Rejections.WithLabelValues(string(res.Stage)).Inc()
		return
	}
	if res.Category != "" {
		m.Classified.WithLabelValues(string(res.Category)).Inc()
	}
}

// Ensure concrete collaborators satisfy the ports.
var (
	_ Classifier      = (*classify.Classifier)(nil)
	_ Store           = (*storage.Store)(nil)
	_ Transcriber     = (*transcribe.Whisper)(nil)
	_ Normalizer      = (*whatsapp.Normalizer)(nil)
	_ MediaDownloader = (*whatsapp.Client)(nil)
	_ Notifier        = (*whatsapp.Client)(nil)
)
