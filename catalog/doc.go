// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package catalog looks up movie details by external catalog id. Candidate
// detail fetches are the dominant latency cost of joining a poll, which is
// why callers fan them out.
package catalog
