// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nestzone/nestwatch/models"
)

// Lookup fetches movie details by external catalog id. The session
// controller fans these calls out per candidate; one failed lookup drops
// that candidate, never the whole join.
type Lookup interface {
	Movie(ctx context.Context, externalID string) (models.Movie, error)
}

// Client looks movies up against a TMDB-style HTTP catalog.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a catalog client for the API at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return c
}

type movieResponse struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Overview    string      `json:"overview"`
	PosterPath  string      `json:"poster_path"`
	ReleaseDate string      `json:"release_date"`
	VoteAverage float64     `json:"vote_average"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// Movie fetches one movie's details.
func (c *Client) Movie(ctx context.Context, externalID string) (models.Movie, error) {
	u := c.baseURL + "/movie/" + url.PathEscape(externalID)
	if c.apiKey != "" {
		u += "?api_key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Movie{}, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.Movie{}, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Movie{}, fmt.Errorf("catalog lookup %s: status %d", externalID, resp.StatusCode)
	}

	var body movieResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Movie{}, fmt.Errorf("decode catalog response: %w", err)
	}

	movie := models.Movie{
		ExternalID: externalID,
		Title:      body.Title,
		Overview:   body.Overview,
		Rating:     body.VoteAverage,
	}
	if body.PosterPath != "" {
		movie.PosterURL = c.baseURL + body.PosterPath
	}
	// Release dates arrive as YYYY-MM-DD.
	if len(body.ReleaseDate) >= 4 {
		if y, err := strconv.Atoi(body.ReleaseDate[:4]); err == nil {
			movie.Year = y
		}
	}
	for _, g := range body.Genres {
		movie.Genres = append(movie.Genres, g.Name)
	}
	return movie, nil
}
