// Package bark sends iOS push notifications through a Bark server.
package bark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/heliosensium/site/internal/config"
)

const defaultThrottle = 10 * time.Minute

// Client pushes moderation alerts to a single Bark device.
type Client struct {
	cfg        config.BarkConfig
	siteName   string
	httpClient *http.Client

	mu         sync.Mutex
	lastPushAt map[string]time.Time
	throttle   time.Duration
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithThrottle sets the minimum gap between ThrottlePush calls sharing a key.
func WithThrottle(d time.Duration) Option {
	return func(c *Client) { c.throttle = d }
}

func New(cfg config.BarkConfig, siteName string, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		siteName:   siteName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		lastPushAt: make(map[string]time.Time),
		throttle:   defaultThrottle,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a device key is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.Key != "" }

type pushPayload struct {
	DeviceKey string `json:"device_key"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Group     string `json:"group,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Push sends one notification. link, when set, opens on tap. A client
// without a key is a no-op.
func (c *Client) Push(ctx context.Context, title, body, link string) error {
	if !c.Enabled() {
		return nil
	}

	b, err := json.Marshal(pushPayload{
		DeviceKey: c.cfg.Key,
		Title:     fmt.Sprintf("[%s] %s", c.siteName, title),
		Body:      body,
		Group:     c.siteName,
		URL:       link,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Server+"/push", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("bark: push failed with status %d", resp.StatusCode)
	}
	return nil
}

// ThrottlePush sends at most one notification per key within the throttle
// window. It reports whether a push was attempted.
func (c *Client) ThrottlePush(ctx context.Context, key, title, body string) bool {
	if !c.Enabled() {
		return false
	}

	c.mu.Lock()
	now := c.now()
	if last, ok := c.lastPushAt[key]; ok && now.Sub(last) < c.throttle {
		c.mu.Unlock()
		return false
	}
	c.lastPushAt[key] = now
	c.mu.Unlock()

	_ = c.Push(ctx, title, body, "")
	return true
}
