// Package vk is a small typed client for the VK API methods the pipeline
// uses. Every response is mapped into domain types at this boundary so the
// rest of the code never touches loosely-typed maps.
package vk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/leadharvest/internal/pkg/httpretry"
)

const (
	DefaultBaseURL = "https://api.vk.com/method/"
	DefaultVersion = "5.199"

	// MaxMembersPage is the largest count groups.getMembers accepts.
	MaxMembersPage = 1000
)

// Config holds connection settings for the API client.
type Config struct {
	BaseURL    string
	Token      string
	Version    string
	Timeout    time.Duration
	MaxRetries int
}

// Client calls VK API methods with a user access token.
type Client struct {
	http    httpretry.HTTPDoer
	baseURL string
	token   string
	version string
}

// NewClient builds a client. A nil doer gets an http.Client, retrying only
// when cfg.MaxRetries is positive.
func NewClient(cfg Config, doer httpretry.HTTPDoer) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if doer == nil {
		doer = httpretry.Wrap(&http.Client{Timeout: cfg.Timeout}, cfg.MaxRetries)
	}
	return &Client{
		http:    doer,
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		version: cfg.Version,
	}
}

type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

// call invokes an API method and decodes the "response" field into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.token)
	params.Set("v", c.version)

	body := params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s: unexpected status %d", method, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if env.Error != nil {
		env.Error.Method = method
		return env.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", method, err)
	}
	return nil
}

// postJSON posts a raw body to an absolute URL (upload servers) and decodes
// the JSON answer.
func (c *Client) postJSON(ctx context.Context, rawURL, contentType string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode upload response: %w", err)
	}
	return nil
}

// ownerParams turns a group reference (numeric id or short name) into wall
// owner parameters.
func ownerParams(groupRef string) url.Values {
	params := url.Values{}
	if id, err := strconv.ParseInt(groupRef, 10, 64); err == nil {
		if id > 0 {
			id = -id
		}
		params.Set("owner_id", strconv.FormatInt(id, 10))
		return params
	}
	params.Set("domain", groupRef)
	return params
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
