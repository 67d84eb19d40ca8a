package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no webhook URL is set; nothing is sent.
var ErrNotConfigured = errors.New("relay: webhook url não configurado")

// Config holds the webhook destination and its HTTP Basic credentials.
// Credentials live only on the server and are never echoed to the client.
type Config struct {
	URL  string
	User string
	Pass string
}

// Client forwards normalized confirmations to the automation webhook (n8n).
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}}
}

// Forward POSTs the payload to the webhook and returns the upstream status and
// raw body untouched; interpreting them is the caller's job. The error is
// non-nil only for transport failures (or missing configuration).
func (c *Client) Forward(ctx context.Context, payload map[string]interface{}) (int, []byte, error) {
	if c.cfg.URL == "" {
		return 0, nil, ErrNotConfigured
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.User != "" {
		req.SetBasicAuth(c.cfg.User, c.cfg.Pass)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
