package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDownload(t *testing.T) {
	audioBytes := []byte("ogg-audio-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/v19.0/media-55":
			// Step one: resolve media id to URL.
			_ = json.NewEncoder(w).Encode(map[string]string{
				"url":       "http://" + r.Host + "/blob/media-55",
				"mime_type": "audio/ogg",
			})
		case "/blob/media-55":
			// Step two: the actual bytes.
			_, _ = w.Write(audioBytes)
		case "/v19.0/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL:     srv.URL,
		APIVersion:  "v19.0",
		AccessToken: "token-1",
	}, srv.Client(), nil)

	t.Run("two-step download", func(t *testing.T) {
		data, err := c.Download(context.Background(), "media-55")
		require.NoError(t, err)
		assert.Equal(t, audioBytes, data)
	})

	t.Run("unresolvable media id", func(t *testing.T) {
		_, err := c.Download(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrMediaNotFound)
	})

	t.Run("blank media id", func(t *testing.T) {
		_, err := c.Download(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrMediaNotFound)
	})
}

func TestClientDownloadEmptyURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"mime_type": "audio/ogg"})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, AccessToken: "t"}, srv.Client(), nil)
	_, err := c.Download(context.Background(), "media-1")
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestClientSendText(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v19.0/pn-1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL:       srv.URL,
		APIVersion:    "v19.0",
		AccessToken:   "token-1",
		PhoneNumberID: "pn-1",
	}, srv.Client(), nil)

	err := c.SendText(context.Background(), "34600111222", "saved!")
	require.NoError(t, err)

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "34600111222", got["to"])

	err = c.SendText(context.Background(), "", "body")
	assert.Error(t, err)
}

func TestClientSendTextServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, PhoneNumberID: "pn"}, srv.Client(), nil)
	err := c.SendText(context.Background(), "34600111222", "hi")
	assert.Error(t, err)
}
