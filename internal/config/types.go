package config

import (
	"github.com/savenote/savenote/internal/classify"
	"github.com/savenote/savenote/internal/dedupe"
	"github.com/savenote/savenote/internal/storage"
	"github.com/savenote/savenote/internal/transcribe"
	"github.com/savenote/savenote/internal/whatsapp"
)

// Config is the complete savenote configuration. Loaded once at startup and
// read-only afterwards.
type Config struct {
	Service        ServiceConfig         `yaml:"service"`
	Webhook        WebhookConfig         `yaml:"webhook"`
	WhatsApp       whatsapp.ClientConfig `yaml:"whatsapp"`
	Storage        storage.Config        `yaml:"storage"`
	Transcription  transcribe.Config     `yaml:"transcription"`
	Dedupe         dedupe.Config         `yaml:"dedupe,omitempty"`
	Classification classify.Rules        `yaml:"classification,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`

	// Environment selects the signature policy: "production" fails closed
	// when no webhook secret is configured.
	Environment string `yaml:"environment"`
}

// Production reports whether the fail-closed policy applies.
func (s ServiceConfig) Production() bool {
	return s.Environment == "production"
}

// WebhookConfig defines the inbound webhook endpoint.
type WebhookConfig struct {
	Listen string `yaml:"listen"`

	// Path is the URL path the provider posts to.
	Path string `yaml:"path"`

	// Secret is the HMAC-SHA256 signing secret for X-Hub-Signature-256.
	Secret string `yaml:"secret,omitempty"`

	// VerifyToken answers the provider's GET verification handshake.
	VerifyToken string `yaml:"verify_token,omitempty"`

	// MaxBodySize caps the request body in bytes (default: 1MB).
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`

	// AckMessage, when set, is sent back to the sender after a successful
	// save.
	AckMessage string `yaml:"ack_message,omitempty"`
}

// Default values.
const (
	DefaultListen      = "127.0.0.1:8080"
	DefaultPath        = "/webhook/whatsapp"
	DefaultMaxBodySize = 1048576 // 1 MB
)

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "savenote",
			LogLevel:    "INFO",
			Environment: "development",
		},
		Webhook: WebhookConfig{
			Listen:      DefaultListen,
			Path:        DefaultPath,
			MaxBodySize: DefaultMaxBodySize,
		},
		Storage: storage.Config{
			BasePath: "./data",
		},
	}
}
