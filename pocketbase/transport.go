// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pocketbase

import (
	"log/slog"
	"net/http"
	"time"
)

// authLogTransport attaches the auth token and logs every request with its
// duration and status, so all store traffic shows up uniformly in the logs.
type authLogTransport struct {
	token  string
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *authLogTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", t.token)
	}

	start := time.Now()
	resp, err := t.transport().RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.Warn("request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	t.logger.Debug("request completed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)
	return resp, nil
}

func (t *authLogTransport) transport() http.RoundTripper {
	if t.base != nil {
		return t.base
	}
	return http.DefaultTransport
}
