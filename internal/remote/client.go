// Package remote is the HTTP client for the platform's admin REST API.
// Every payload shape the API is known to send is normalized here, so
// callers only ever see records or one of this package's error types.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = 200 * time.Millisecond
	maxBodyBytes      = 32 << 20
)

// Client provides access to the platform API.
type Client struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	retries    uint64
	retryDelay time.Duration
	userAgent  string
	logger     *slog.Logger
	maxBody    int64
}

// Config holds configuration for creating a client.
type Config struct {
	BaseURL       string
	AllowInsecure bool
	Timeout       time.Duration
	// Retries is how many times a failed GET is retried on transport
	// errors and 5xx responses. Writes are never retried.
	Retries    int
	RetryDelay time.Duration
	// TokenSource supplies the bearer token; nil sends no Authorization.
	TokenSource oauth2.TokenSource
	UserAgent   string
	Logger      *slog.Logger
	// HTTPClient overrides the default client; its Timeout is left alone.
	HTTPClient *http.Client
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("API base URL is required")
	}

	parsedURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Enforce HTTPS unless AllowInsecure is set
	if parsedURL.Scheme == "http" && !cfg.AllowInsecure {
		return nil, fmt.Errorf("HTTPS required for API connections\n\n" +
			"Options:\n" +
			"  1. Use HTTPS: [api] base_url = \"https://api.example.com\"\n" +
			"  2. For a local fixture server: add 'allow_insecure = true' to [api] in config.toml")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return nil, fmt.Errorf("API URL must include a host (e.g., https://api.example.com)")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "staffdesk"
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		tokens:     cfg.TokenSource,
		httpClient: httpClient,
		retries:    uint64(retries),
		retryDelay: delay,
		userAgent:  ua,
		logger:     logger,
		maxBody:    maxBodyBytes,
	}, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// WithTokenSource returns a copy of c that authenticates with ts.
// A nil ts sends no Authorization header.
func (c *Client) WithTokenSource(ts oauth2.TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// doRequest performs one HTTP request and reads the whole response body.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) (*http.Response, []byte, error) {
	op := method + " " + path

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("get token: %w", err)
		}
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "op", op, "error", err)
		return nil, nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, nil, &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > c.maxBody {
		return nil, nil, fmt.Errorf("%s: %w (limit %d bytes)", op, ErrBodyTooLarge, c.maxBody)
	}
	c.logger.Debug("api request",
		"op", op,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, data, nil
}

// get performs a GET, retrying transport failures and 5xx responses.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, data, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			if ctx.Err() != nil || !IsNetwork(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		if resp.StatusCode >= 500 {
			return retry.RetryableError(handleErrorResponse(resp, data))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return handleErrorResponse(resp, data)
		}
		body = data
		return nil
	})
	return body, err
}

// send performs a write. Writes are not retried.
func (c *Client) send(ctx context.Context, method, path string, payload any) ([]byte, error) {
	resp, data, err := c.doRequest(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, handleErrorResponse(resp, data)
	}
	return data, nil
}

// FetchCollection fetches the whole collection of res. scopeID narrows
// scoped resources and is ignored otherwise.
func (c *Client) FetchCollection(ctx context.Context, res catalog.Resource, scopeID string) ([]catalog.Record, error) {
	path := res.CollectionPath(scopeID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", res.Name, err)
	}
	recs, shape, err := normalize(body, res.CollectionKey)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", res.Name, err)
	}
	c.logger.Debug("collection fetched", "resource", res.Name, "shape", shape.String(), "count", len(recs))
	return recs, nil
}

// Delete removes one record. Any 2xx response is success.
func (c *Client) Delete(ctx context.Context, res catalog.Resource, id string) error {
	if _, err := c.send(ctx, http.MethodDelete, res.ItemPath(id), nil); err != nil {
		return fmt.Errorf("delete %s %s: %w", res.Noun, id, err)
	}
	return nil
}

// Create posts a new record. The returned record is empty when the API
// does not echo the created object.
func (c *Client) Create(ctx context.Context, res catalog.Resource, values map[string]string) (catalog.Record, error) {
	return c.write(ctx, http.MethodPost, "/"+res.Path, res, values)
}

// Update replaces the given fields of one record.
func (c *Client) Update(ctx context.Context, res catalog.Resource, id string, values map[string]string) (catalog.Record, error) {
	return c.write(ctx, http.MethodPut, res.ItemPath(id), res, values)
}

func (c *Client) write(ctx context.Context, method, path string, res catalog.Resource, values map[string]string) (catalog.Record, error) {
	verb := "create"
	if method == http.MethodPut {
		verb = "update"
	}
	data, err := c.send(ctx, method, path, res.Body(values))
	if err != nil {
		return catalog.Record{}, fmt.Errorf("%s %s: %w", verb, res.Noun, err)
	}
	if _, _, err := normalize(data, ""); err != nil {
		return catalog.Record{}, fmt.Errorf("%s %s: %w", verb, res.Noun, err)
	}
	rec, _ := decodeRecord(data)
	return rec, nil
}
