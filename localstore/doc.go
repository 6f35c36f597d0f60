// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package localstore implements record.Store over database/sql, for
local-only poll play when the remote store rejects writes, and for tests
that want a real store without a network.

Supports sqlite (modernc.org/sqlite) and postgres (lib/pq). Records live as
JSON documents in a single generic table; filters and sorts run in-process.
Deleting a poll cascades to its items and votes, mirroring the remote
server's behavior.
*/
package localstore

import (
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)
