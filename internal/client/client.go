// Package client talks to the upstream REST backend that persists applicant records.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "CareersPortal/1.0"

// Error represents a failed call to the records backend: a transport failure
// or a non-2xx response.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NotFound reports whether the backend answered 404.
func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Options configures the client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Token is sent as a bearer token when set.
	Token   string
	Headers map[string]string
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// DefaultOptions returns sensible defaults for baseURL.
func DefaultOptions(baseURL string) *Options {
	return &Options{
		BaseURL:   baseURL,
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Client issues requests against the records backend. It never retries.
type Client struct {
	base *url.URL
	http *http.Client
	opts Options
}

// New creates a client.
func New(opts *Options) (*Client, error) {
	if opts == nil || opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	parsed, err := url.Parse(opts.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{URL: opts.BaseURL, Message: "invalid base URL", Cause: err}
	}

	o := *opts
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}

	return &Client{base: parsed, http: hc, opts: o}, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String()
}

// do sends body as JSON and decodes the response into out, unwrapping a
// {"data": ...} envelope when present.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	target := c.endpoint(path)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Method: method, URL: target, Message: "failed to encode request", Cause: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Method: method, URL: target, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	for key, value := range c.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Method: method, URL: target, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Method: method, URL: target, StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("HTTP status %d", resp.StatusCode)
		if detail := errorDetail(data); detail != "" {
			msg += ": " + detail
		}
		return &Error{Method: method, URL: target, StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapData(data), out); err != nil {
		return &Error{Method: method, URL: target, StatusCode: resp.StatusCode, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// unwrapData returns the "data" member of an envelope object, or data itself.
func unwrapData(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if inner, ok := envelope["data"]; ok {
		return inner
	}
	return trimmed
}

// errorDetail extracts a message from an error body such as {"message": "..."}.
func errorDetail(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
