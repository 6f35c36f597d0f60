// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package record defines the generic record-store contract the rest of the
module persists through.

A Store exposes list/get/create/update/delete over named collections of
schemaless Record documents. Two implementations exist: pocketbase (remote,
over REST) and localstore (in-process, over database/sql).

# Error Taxonomy

Every failure is a *StoreError with one of six kinds: bad request,
unauthorized, forbidden, not found, server error, network error. IsForbidden
and IsNotFound cover the two kinds callers branch on.

# Filter Language

List filters are conjunctions of field comparisons, e.g.

	home_id = 'h1' && status = 'active'

ParseFilter gives local implementations an evaluable form; remote
implementations pass the text through unchanged. Build filter text with
Equal, NotEqual, EqualBool, and And rather than concatenating by hand.
*/
package record
