// Package probe checks a running site API from the outside.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Endpoint is a path probed relative to an API base URL.
type Endpoint struct {
	Name string
	Path string
}

// DefaultEndpoints are probed by CheckEndpoints.
var DefaultEndpoints = []Endpoint{
	{Name: "blogs", Path: "/blogs?limit=10&status=approved"},
	{Name: "health", Path: "/health"},
	{Name: "auth", Path: "/auth/validate"},
}

// Result is the outcome of probing one endpoint.
type Result struct {
	Name    string
	URL     string
	Status  int
	Latency time.Duration
	Items   int
	Err     error
}

// OK reports whether the endpoint answered without a server error. A 401
// from a protected route still proves the route is mounted.
func (r Result) OK() bool { return r.Err == nil && r.Status > 0 && r.Status < 500 }

type Client struct {
	http *http.Client
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

type envelope struct {
	Success    bool            `json:"success"`
	Token      string          `json:"token"`
	Data       json.RawMessage `json:"data"`
	Pagination json.RawMessage `json:"pagination"`
	Error      *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (e envelope) itemCount() int {
	var items []json.RawMessage
	if json.Unmarshal(e.Data, &items) != nil {
		return 0
	}
	return len(items)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func (c *Client) do(ctx context.Context, method, url, token string, body io.Reader) (int, envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, envelope{}, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, env, err
	}
	if len(raw) > 0 && json.Unmarshal(raw, &env) != nil {
		// Non-envelope bodies such as the health probe are not errors.
		env = envelope{}
	}
	return resp.StatusCode, env, nil
}

// CheckEndpoints probes each endpoint under base.
func (c *Client) CheckEndpoints(ctx context.Context, base string, endpoints []Endpoint) []Result {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	out := make([]Result, 0, len(endpoints))
	for _, ep := range endpoints {
		url := joinURL(base, ep.Path)
		start := time.Now()
		status, env, err := c.do(ctx, http.MethodGet, url, "", nil)
		out = append(out, Result{
			Name:    ep.Name,
			URL:     url,
			Status:  status,
			Latency: time.Since(start),
			Items:   env.itemCount(),
			Err:     err,
		})
	}
	return out
}

// URLCheck is the outcome of testing one candidate base URL.
type URLCheck struct {
	URL      string
	OK       bool
	HasBlogs bool
	Err      error
}

// TestURL fetches one blog from base to see whether the API is serving.
func (c *Client) TestURL(ctx context.Context, base string) URLCheck {
	status, env, err := c.do(ctx, http.MethodGet, joinURL(base, "/blogs?limit=1"), "", nil)
	check := URLCheck{URL: base, Err: err}
	if err == nil && status != http.StatusOK {
		check.Err = fmt.Errorf("status %d", status)
	}
	check.OK = check.Err == nil
	check.HasBlogs = check.OK && env.itemCount() > 0
	return check
}

// PickWorking prefers the first working URL that already serves blogs and
// falls back to the first working one.
func PickWorking(checks []URLCheck) (string, bool) {
	for _, ch := range checks {
		if ch.OK && ch.HasBlogs {
			return ch.URL, true
		}
	}
	for _, ch := range checks {
		if ch.OK {
			return ch.URL, true
		}
	}
	return "", false
}

// LoginReport summarizes an admin login round trip.
type LoginReport struct {
	Token        string
	Valid        bool
	Stats        map[string]int64
	PendingCount int64
}

// LoginCheck logs in and then uses the issued token against the protected
// admin routes.
func (c *Client) LoginCheck(ctx context.Context, base, username, password string) (*LoginReport, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	status, env, err := c.do(ctx, http.MethodPost, joinURL(base, "/auth/login"), "", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("login: status %d: %s", status, env.message())
	}

	token := env.Token
	if token == "" {
		var data struct {
			Token string `json:"token"`
		}
		_ = json.Unmarshal(env.Data, &data)
		token = data.Token
	}
	if token == "" {
		return nil, errors.New("login: response carried no token")
	}
	report := &LoginReport{Token: token}

	status, _, err = c.do(ctx, http.MethodGet, joinURL(base, "/auth/validate"), token, nil)
	if err != nil {
		return report, fmt.Errorf("validate: %w", err)
	}
	report.Valid = status == http.StatusOK
	if !report.Valid {
		return report, fmt.Errorf("validate: status %d", status)
	}

	status, env, err = c.do(ctx, http.MethodGet, joinURL(base, "/admin/stats"), token, nil)
	if err != nil || status != http.StatusOK {
		return report, fmt.Errorf("stats: status %d: %v", status, err)
	}
	var stats []struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		return report, fmt.Errorf("stats: %w", err)
	}
	report.Stats = make(map[string]int64, len(stats))
	for _, s := range stats {
		report.Stats[s.Status] = s.Count
	}

	status, env, err = c.do(ctx, http.MethodGet, joinURL(base, "/admin/blogs?status=pending&limit=1"), token, nil)
	if err != nil || status != http.StatusOK {
		return report, fmt.Errorf("pending: status %d: %v", status, err)
	}
	var page struct {
		TotalCount int64 `json:"totalCount"`
	}
	if err := json.Unmarshal(env.Pagination, &page); err != nil {
		return report, fmt.Errorf("pending: %w", err)
	}
	report.PendingCount = page.TotalCount
	return report, nil
}

func (e envelope) message() string {
	if e.Error != nil {
		return e.Error.Message
	}
	return ""
}
