// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain types shared across the poll subsystem.

# Domain Types

  - Poll: one household voting session (draft -> active -> closed)
  - PollItem: one votable candidate, identified by an external catalog id
  - Vote: one user's yes/no decision on one candidate
  - Movie: catalog details for a candidate
  - PollSummary: ephemeral end-of-poll aggregate (matches, winner, counts)
  - VoterStats: per-user vote counts for progress display
  - HouseholdContext: explicit household + acting user, passed to every
    poll-store call

# Constants

Poll status values:

	StatusDraft  = "draft"
	StatusActive = "active"
	StatusClosed = "closed"

Record-store collection names:

	CollectionPolls, CollectionPollItems, CollectionVotes,
	CollectionHomes, CollectionUsers, CollectionMessages

A poll owns its items and votes: deleting a poll cascades to both. Callers
never hold an authoritative copy of any of these types; the record store is
the source of truth and is refetched after mutations.
*/
package models
