// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package users resolves user ids to display names, memoizing results and
// failures separately so a flaky lookup never turns into repeated traffic.
package users
