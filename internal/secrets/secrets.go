// Package secrets retrieves the Gemini API key from a Secret
// Manager-style service addressed by a project/secret/version triple.
package secrets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"denuncia_pipeline/internal/config"
)

// ErrNoCredential signals that no API key could be obtained.
var ErrNoCredential = errors.New("no credential available")

// Client resolves the model credential. A non-empty override short-circuits
// the remote call, which keeps local runs off the network.
type Client struct {
	hc       *http.Client
	baseURL  string
	project  string
	secret   string
	version  string
	token    string
	override string
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		hc:       &http.Client{Timeout: 15 * time.Second},
		baseURL:  strings.TrimRight(cfg.SecretBaseURL, "/"),
		project:  cfg.ProjectID,
		secret:   cfg.SecretID,
		version:  cfg.SecretVersion,
		token:    cfg.SecretToken,
		override: cfg.GeminiAPIKey,
	}
}

// APIKey returns the UTF-8 credential string.
func (c *Client) APIKey(ctx context.Context) (string, error) {
	if c.override != "" {
		return c.override, nil
	}
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", c.project, c.secret, c.version)
	url := fmt.Sprintf("%s/v1/%s:access", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCredential, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("%w: secret %s status %d: %s", ErrNoCredential, name, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed struct {
		Payload struct {
			Data string `json:"data"`
		} `json:"payload"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrNoCredential, err)
	}
	raw, err := base64.StdEncoding.DecodeString(parsed.Payload.Data)
	if err != nil {
		return "", fmt.Errorf("%w: payload: %v", ErrNoCredential, err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("%w: empty payload", ErrNoCredential)
	}
	return key, nil
}
