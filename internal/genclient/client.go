// Package genclient calls the remote text and image generation endpoints.
// Both are plain GET services keyed by a URL-escaped prompt; a non-2xx
// status or timeout is a generation failure and is never retried here —
// the user re-issues the command if they want another attempt.
package genclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrGenerationFailed = errors.New("generation failed")

const (
	maxTextBody  = 1 << 20
	maxImageBody = 16 << 20

	// Appended to every image prompt, matching what the endpoint expects
	// for clean output.
	imagePromptSuffix = ", high quality, no watermark"
)

type Config struct {
	TextBaseURL  string
	ImageBaseURL string
	APIKey       string
	TextTimeout  time.Duration
	ImageTimeout time.Duration
	HTTPClient   *http.Client
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.TextTimeout <= 0 {
		cfg.TextTimeout = 20 * time.Second
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = 45 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// GenerateText fetches a completion for the prompt. The short timeout
// class applies.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	body, err := c.get(ctx, c.cfg.TextBaseURL, prompt, c.cfg.TextTimeout, maxTextBody)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", fmt.Errorf("%w: empty text response", ErrGenerationFailed)
	}
	return text, nil
}

// GenerateImage fetches synthesized image bytes for the prompt. A
// non-empty style modifier is prepended, and a fixed quality suffix is
// always appended. The long timeout class applies.
func (c *Client) GenerateImage(ctx context.Context, prompt, style string) ([]byte, error) {
	full := BuildImagePrompt(prompt, style)
	body, err := c.get(ctx, c.cfg.ImageBaseURL, full, c.cfg.ImageTimeout, maxImageBody)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty image response", ErrGenerationFailed)
	}
	return body, nil
}

func BuildImagePrompt(prompt, style string) string {
	if strings.TrimSpace(style) == "" {
		return prompt + imagePromptSuffix
	}
	return style + ", " + prompt + imagePromptSuffix
}

func (c *Client) get(ctx context.Context, base, prompt string, timeout time.Duration, limit int64) ([]byte, error) {
	base = strings.TrimSuffix(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, fmt.Errorf("generation base url is empty")
	}
	endpoint := base + "/" + url.PathEscape(prompt)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrGenerationFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: endpoint status %d", ErrGenerationFailed, resp.StatusCode)
	}
	return body, nil
}
