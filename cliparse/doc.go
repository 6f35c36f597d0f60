// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration from CLI flags and environment
variables.

Flags always win over environment variables. Required settings: server URL
(-s / NESTWATCH_SERVER), home id (-H / NESTWATCH_HOME), and user id
(-u / NESTWATCH_USER). The auth token and catalog key should come from the
environment (NESTWATCH_TOKEN, CATALOG_KEY). The first positional argument
selects the command; the default is "status".
*/
package cliparse
