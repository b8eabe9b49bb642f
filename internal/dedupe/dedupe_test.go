package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNoopNeverSeen(t *testing.T) {
	var d Deduper = Noop{}

	seen, err := d.Seen(context.Background(), "whatsapp", "wamid.1")
	assert.NoError(t, err)
	assert.False(t, seen)

	// Repeats still report unseen: redeliveries pass through by default.
	seen, err = d.Seen(context.Background(), "whatsapp", "wamid.1")
	assert.NoError(t, err)
	assert.False(t, seen)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "savenote:msg:whatsapp:wamid.1", Key("whatsapp", "wamid.1"))
}

func TestConfigTTLParsing(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte("enabled: true\naddr: localhost:6379\nttl: 24h\n"), &cfg))
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.TTL)

	var bad Config
	err := yaml.Unmarshal([]byte("ttl: soon\n"), &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dedupe ttl")
}

func TestNewRedisDefaults(t *testing.T) {
	d := NewRedis(Config{Addr: "localhost:6379"})
	t.Cleanup(func() { _ = d.Close() })
	assert.Equal(t, DefaultTTL, d.ttl)
}
