// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package pocketbase implements record.Store against a PocketBase server.

Requests go to /api/collections/{collection}/records with filter, sort, and
perPage query parameters; failures map onto the record error taxonomy by
HTTP status (400 bad request, 401 unauthorized, 403 forbidden, 404 not
found, anything else server error; transport failures are network errors).

The client's HTTP client carries an auth+logging round tripper and is shared
with the realtime transport via HTTPClient.
*/
package pocketbase
