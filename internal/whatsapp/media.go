package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// ErrMediaNotFound reports an unresolvable media id.
var ErrMediaNotFound = errors.New("whatsapp: media id could not be resolved")

// ClientConfig holds Graph API connection settings.
type ClientConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIVersion    string `yaml:"api_version"`
	AccessToken   string `yaml:"access_token"`
	PhoneNumberID string `yaml:"phone_number_id"`
}

// Client calls the WhatsApp Business Cloud (Graph) API: media downloads and
// outbound text messages. Media download is a two-step fetch: resolve the
// media id to a short-lived URL, then fetch the bytes with the same bearer
// token.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a Graph API client. httpClient may be nil, in which case
// http.DefaultClient is used; pass one with a timeout in production.
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v19.0"
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// Download fetches the raw bytes of a media object by id.
func (c *Client) Download(ctx context.Context, mediaID string) ([]byte, error) {
	if strings.TrimSpace(mediaID) == "" {
		return nil, ErrMediaNotFound
	}

	url, err := c.resolveMediaURL(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	data, err := c.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download media %s: %w", mediaID, err)
	}
	return data, nil
}

// resolveMediaURL asks the Graph API for the download URL of a media id.
func (c *Client) resolveMediaURL(ctx context.Context, mediaID string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, c.cfg.APIVersion, mediaID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build media info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch media info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrMediaNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media info request failed: status %d", resp.StatusCode)
	}

	var info mediaInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode media info: %w", err)
	}
	if info.URL == "" {
		return "", ErrMediaNotFound
	}
	return info.URL, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SendText sends an outbound text message, used to acknowledge receipt when
// configured. Best-effort from the pipeline's point of view.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" || strings.TrimSpace(body) == "" {
		return fmt.Errorf("send text: recipient and body are required")
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.PhoneNumberID)

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build outbound request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send outbound message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if c.logger != nil {
			c.logger.Error("outbound message rejected", "status", resp.StatusCode, "response", string(respBody))
		}
		return fmt.Errorf("send outbound message: status %d", resp.StatusCode)
	}

	if c.logger != nil {
		c.logger.Info("outbound message sent", "to", to)
	}
	return nil
}
