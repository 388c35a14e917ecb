// Package client talks to a daybook server's entry API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/unowned-ai/daybook/pkg/entries"
)

// APIError is a problem response the client has no sentinel for.
type APIError struct {
	Status int                  `json:"status"`
	Title  string               `json:"title"`
	Detail string               `json:"detail"`
	Errors []entries.FieldError `json:"errors"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("daybook api: %d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("daybook api: %d %s", e.Status, e.Title)
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// Load fetches one entry. An unknown entry is entries.ErrEntryNotFound.
func (c *Client) Load(ctx context.Context, id string) (entries.SerializedEntry, error) {
	var out dataEnvelope[entries.SerializedEntry]
	err := c.do(ctx, http.MethodGet, "/api/entries/"+url.PathEscape(id), nil, &out)
	return out.Data, err
}

// Update sends the full entry keyed by id.
func (c *Client) Update(ctx context.Context, id string, in entries.EntryInput) (entries.SerializedEntry, error) {
	var out dataEnvelope[entries.SerializedEntry]
	err := c.do(ctx, http.MethodPut, "/api/entries/"+url.PathEscape(id), in, &out)
	return out.Data, err
}

func (c *Client) Create(ctx context.Context, in entries.EntryInput) (entries.SerializedEntry, error) {
	var out dataEnvelope[entries.SerializedEntry]
	err := c.do(ctx, http.MethodPost, "/api/entries", in, &out)
	return out.Data, err
}

func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var out dataEnvelope[[]string]
	err := c.do(ctx, http.MethodGet, "/api/tags", nil, &out)
	return out.Data, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, apiErr)
	apiErr.Status = resp.StatusCode

	// Only the server's own problem responses carry entry outcomes. A plain
	// 404 usually means a wrong base URL.
	if !isProblem(resp) {
		return apiErr
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return entries.ErrEntryNotFound
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", entries.ErrEntryExists, apiErr.Detail)
	case http.StatusNotImplemented:
		return entries.ErrNotYetAvailable
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", entries.ErrValidation, apiErr)
	}
	return apiErr
}

func isProblem(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/problem+json"
}
