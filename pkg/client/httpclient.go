package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 1 << 20
)

// HttpClient talks JSON to one upstream API such as the payment gateway.
type HttpClient struct {
	baseURL  string
	http     *http.Client
	username string
	password string
}

func NewHttpClient(baseURL string) *HttpClient {
	return &HttpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// WithBasicAuth sets credentials sent on every request.
func (c *HttpClient) WithBasicAuth(username, password string) *HttpClient {
	c.username, c.password = username, password
	return c
}

func (c *HttpClient) WithTimeout(d time.Duration) *HttpClient {
	if d > 0 {
		c.http.Timeout = d
	}
	return c
}

// Response holds a fully read upstream reply. Bodies beyond 1 MiB are cut.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ErrorMessage extracts a readable reason from an upstream error body. It
// understands {"message":...} and {"error":{"description":...}}.
func (r *Response) ErrorMessage() string {
	var body struct {
		Message string          `json:"message"`
		Code    string          `json:"code"`
		Error   json.RawMessage `json:"error"`
	}
	if err := r.DecodeJSON(&body); err != nil {
		return fmt.Sprintf("status %d", r.StatusCode)
	}
	if body.Message != "" {
		return body.Message
	}
	if len(body.Error) > 0 {
		var nested struct {
			Description string `json:"description"`
			Code        string `json:"code"`
		}
		if json.Unmarshal(body.Error, &nested) == nil && (nested.Description != "" || nested.Code != "") {
			return strings.TrimSpace(nested.Code + " " + nested.Description)
		}
		var flat string
		if json.Unmarshal(body.Error, &flat) == nil && flat != "" {
			return flat
		}
	}
	if body.Code != "" {
		return body.Code
	}
	return fmt.Sprintf("status %d", r.StatusCode)
}

func (c *HttpClient) Get(ctx context.Context, path string) (*Response, error) {
	return c.send(ctx, http.MethodGet, path, nil, nil)
}

// PostJSON encodes body as JSON. Extra headers such as Idempotency-Key are
// applied after the defaults.
func (c *HttpClient) PostJSON(ctx context.Context, path string, body any, headers map[string]string) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return c.send(ctx, http.MethodPost, path, payload, headers)
}

func (c *HttpClient) send(ctx context.Context, method, path string, payload []byte, headers map[string]string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
