// Package datastore is the client for the relational datastore's
// REST-over-HTTP data API. Tables are addressed by name; filters use the
// API's column=op.value query convention. The datastore itself is an
// external collaborator and is never embedded in this process.
package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Error is a non-success response from the data API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("datastore error (status %d): %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(baseURL, serviceKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// selectRows fetches rows from a table into out (a pointer to a slice).
func (c *Client) selectRows(ctx context.Context, table string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, table, query, nil, out)
}

// insertRow inserts one row and decodes the stored representation into out.
func (c *Client) insertRow(ctx context.Context, table string, row, out any) error {
	return c.do(ctx, http.MethodPost, table, nil, row, out)
}

// updateRows patches rows matching query and decodes them into out.
func (c *Client) updateRows(ctx context.Context, table string, query url.Values, fields, out any) error {
	return c.do(ctx, http.MethodPatch, table, query, fields, out)
}

// deleteRows removes rows matching query.
func (c *Client) deleteRows(ctx context.Context, table string, query url.Values) error {
	return c.do(ctx, http.MethodDelete, table, query, nil, nil)
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body, out any) error {
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal row: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("datastore request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Details string `json:"details"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.Details
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}

func eq(value string) string {
	return "eq." + value
}
