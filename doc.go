// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the NestWatch CLI.

NestWatch is a household movie-night companion: the household swipes
through a shared stack of movie candidates, and when enough members say
yes to the same movie it becomes a match. Poll state lives in a
PocketBase backend and updates arrive over its server-sent-events
realtime stream.

# Running

The CLI requires environment variables or flags for configuration:

	NESTWATCH_SERVER=https://pb.example.com NESTWATCH_HOME=h1 NESTWATCH_USER=u1 nestwatch status

Or with flags:

	nestwatch -s https://pb.example.com -H h1 -u u1 play 603 27205 155

# Commands

  - status: join the active poll and print where it stands
  - watch: tail the realtime stream for poll and vote activity
  - history: list recently closed polls and their winners
  - play: interactive swipe session against the server
  - offline: interactive swipe session against the local database

# Configuration

Required settings:

  - NESTWATCH_SERVER (-s): PocketBase base URL
  - NESTWATCH_HOME (-H): household record id
  - NESTWATCH_USER (-u): acting user record id

Optional settings:

  - NESTWATCH_TOKEN (-t): auth token sent on API requests
  - CATALOG_URL / CATALOG_KEY: movie catalog endpoint and API key
  - DATABASE_URL (-d) / DATABASE_TYPE (-dbtype): local store for offline play

# Architecture

The CLI is a thin dispatcher over library packages:

  - session: poll lifecycle state machine (join, swipe, match, summary)
  - pollstore: poll/item/vote operations over a record store
  - pocketbase: PocketBase records API client
  - realtime: SSE realtime transport with reconnect and session recovery
  - localstore: SQL-backed record store for offline play
  - catalog: movie metadata lookups
  - match: vote tallying and match detection
  - users: display-name resolution with negative caching
  - record: record model, filter language, store interface
  - identity: record id generation
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
