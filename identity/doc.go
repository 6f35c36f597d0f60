// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package identity generates store-compatible record ids, local-only poll
// ids, and shortened-id placeholder names.
package identity
