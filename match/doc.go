// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package match computes which poll candidates reached the household
// yes-vote threshold. Pure functions over the vote set; nothing here talks
// to the store.
package match
