package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savenote/savenote/internal/config"
	"github.com/savenote/savenote/internal/domain"
	"github.com/savenote/savenote/internal/pipeline"
	"github.com/savenote/savenote/internal/webhook"
)

type stubProcessor struct {
	result   pipeline.Result
	lastBody []byte
	lastSig  string
}

func (s *stubProcessor) Process(ctx context.Context, rawBody []byte, signatureHeader string) pipeline.Result {
	s.lastBody = rawBody
	s.lastSig = signatureHeader
	return s.result
}

func testServer(t *testing.T, cfg config.WebhookConfig, result pipeline.Result) (*Server, *stubProcessor) {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = "/webhook/whatsapp"
	}
	p := &stubProcessor{result: result}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, p, nil, logger), p
}

func TestHandleVerification(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		query      string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid handshake returns challenge",
			token:      "tok",
			query:      "hub.mode=subscribe&hub.verify_token=tok&hub.challenge=42abc",
			wantStatus: http.StatusOK,
			wantBody:   "42abc",
		},
		{
			name:       "wrong token forbidden",
			token:      "tok",
			query:      "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42abc",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wrong mode forbidden",
			token:      "tok",
			query:      "hub.mode=unsubscribe&hub.verify_token=tok&hub.challenge=42abc",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no token configured is a server error",
			token:      "",
			query:      "hub.mode=subscribe&hub.verify_token=tok&hub.challenge=42abc",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := testServer(t, config.WebhookConfig{VerifyToken: tt.token}, pipeline.Result{})

			req := httptest.NewRequest(http.MethodGet, "/webhook/whatsapp?"+tt.query, nil)
			rec := httptest.NewRecorder()
			srv.Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestHandleReceiveSuccess(t *testing.T) {
	srv, p := testServer(t, config.WebhookConfig{}, pipeline.Result{
		Stage:     pipeline.StageDispatched,
		MessageID: "wamid.1",
		Category:  domain.CategoryNote,
	})

	body := []byte(`{"entry":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256=abc")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "wamid.1", resp["message_id"])
	assert.Equal(t, "note", resp["category"])

	// The raw body and signature header reach the pipeline untouched.
	assert.Equal(t, body, p.lastBody)
	assert.Equal(t, "sha256=abc", p.lastSig)
}

func TestHandleReceiveSignatureFailure(t *testing.T) {
	srv, _ := testServer(t, config.WebhookConfig{}, pipeline.Result{
		Stage: pipeline.StageSignatureVerified,
		Err:   webhook.ErrInvalidSignature,
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	// Generic body only.
	assert.Contains(t, rec.Body.String(), "forbidden")
	assert.NotContains(t, rec.Body.String(), "signature")
}

func TestHandleReceiveMissingSecretIsServerError(t *testing.T) {
	srv, _ := testServer(t, config.WebhookConfig{}, pipeline.Result{
		Stage: pipeline.StageSignatureVerified,
		Err:   webhook.ErrMissingSecret,
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleReceiveProcessingFailureStillAcknowledges(t *testing.T) {
	srv, _ := testServer(t, config.WebhookConfig{}, pipeline.Result{
		Stage: pipeline.StageNormalized,
		Err:   assert.AnError,
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(`{"bad":1}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	// Deliberate asymmetry: we failed, we still tell the provider 200.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestHandleReceivePayloadTooLarge(t *testing.T) {
	srv, p := testServer(t, config.WebhookConfig{MaxBodySize: 16}, pipeline.Result{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, p.lastBody, "oversized payload must not reach the pipeline")
}

func TestHandleHealth(t *testing.T) {
	srv, _ := testServer(t, config.WebhookConfig{}, pipeline.Result{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownPathNotFound(t *testing.T) {
	srv, _ := testServer(t, config.WebhookConfig{}, pipeline.Result{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/other", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
