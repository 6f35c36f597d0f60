// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nestzone/nestwatch/record"
)

const defaultPerPage = 200

// Client implements record.Store against a PocketBase server's collection
// REST API.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests mostly).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the server at baseURL. token is sent as the
// Authorization header on every request; pass "" for unauthenticated access.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: 30 * time.Second}
	}
	// Wrap whatever transport we ended up with so auth and request logging
	// apply uniformly.
	base := c.httpc.Transport
	c.httpc = &http.Client{
		Timeout:   c.httpc.Timeout,
		Transport: &authLogTransport{token: token, base: base, logger: c.logger},
	}
	return c
}

// BaseURL returns the server base URL the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPClient returns the configured HTTP client, including the auth and
// logging transport. The realtime transport shares it.
func (c *Client) HTTPClient() *http.Client { return c.httpc }

func (c *Client) recordsURL(collection string) string {
	return c.baseURL + "/api/collections/" + url.PathEscape(collection) + "/records"
}

// List fetches one page of records matching the options.
func (c *Client) List(ctx context.Context, collection string, opts record.ListOptions) (record.ListResult, error) {
	q := url.Values{}
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	q.Set("perPage", strconv.Itoa(perPage))

	var out record.ListResult
	err := c.do(ctx, http.MethodGet, c.recordsURL(collection)+"?"+q.Encode(), collection, nil, &out)
	if err != nil {
		return record.ListResult{}, err
	}
	return out, nil
}

// Get fetches a single record by id.
func (c *Client) Get(ctx context.Context, collection, id string) (record.Record, error) {
	var out record.Record
	err := c.do(ctx, http.MethodGet, c.recordsURL(collection)+"/"+url.PathEscape(id), collection, nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a record and returns it as stored (server-assigned id and
// timestamps included).
func (c *Client) Create(ctx context.Context, collection string, fields record.Record) (record.Record, error) {
	var out record.Record
	err := c.do(ctx, http.MethodPost, c.recordsURL(collection), collection, fields, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update patches the given fields on a record.
func (c *Client) Update(ctx context.Context, collection, id string, fields record.Record) (record.Record, error) {
	var out record.Record
	err := c.do(ctx, http.MethodPatch, c.recordsURL(collection)+"/"+url.PathEscape(id), collection, fields, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record. The server cascades to dependent records.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, c.recordsURL(collection)+"/"+url.PathEscape(id), collection, nil, nil)
}

func (c *Client) do(ctx context.Context, method, u, collection string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return record.NewError(record.KindBadRequest, collection, "encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return record.NewError(record.KindBadRequest, collection, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return record.NewError(record.KindNetwork, collection, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp, collection)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return record.NewError(record.KindServerError, collection, "decode response", err)
	}
	return nil
}

// apiError maps an HTTP failure status onto the store error taxonomy.
func apiError(resp *http.Response, collection string) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	msg := body.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	var kind record.Kind
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = record.KindBadRequest
	case http.StatusUnauthorized:
		kind = record.KindUnauthorized
	case http.StatusForbidden:
		kind = record.KindForbidden
	case http.StatusNotFound:
		kind = record.KindNotFound
	default:
		kind = record.KindServerError
	}
	return record.NewError(kind, collection, msg, nil)
}
