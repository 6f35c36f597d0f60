// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Poll status constants
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusClosed = "closed"
)

// Collection names in the backing record store
const (
	CollectionPolls     = "polls"
	CollectionPollItems = "poll_items"
	CollectionVotes     = "votes"
	CollectionHomes     = "homes"
	CollectionUsers     = "users"
	CollectionMessages  = "messages"
)

// HouseholdContext identifies the household and acting user for every
// poll-store call. It is always passed explicitly; there is no implicit
// "current household" lookup.
type HouseholdContext struct {
	HomeID string `json:"home_id"`
	UserID string `json:"user_id"`
}

// Domain types

type Poll struct {
	ID        string    `json:"id"`
	HomeID    string    `json:"home_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	GenreTag  string    `json:"genre_tag,omitempty"`
	WinnerID  string    `json:"winner_external_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PollItem is one votable candidate within a poll. ExternalID refers to the
// movie in the external catalog; it is unique within a poll.
type PollItem struct {
	ID         string `json:"id"`
	PollID     string `json:"poll_id"`
	ExternalID string `json:"external_id"`
	Label      string `json:"label"`
}

type Vote struct {
	ID         string    `json:"id"`
	PollID     string    `json:"poll_id"`
	UserID     string    `json:"user_id"`
	ExternalID string    `json:"external_id"`
	Decision   bool      `json:"decision"`
	CreatedAt  time.Time `json:"created_at"`
}

// Movie carries the catalog details for one candidate.
type Movie struct {
	ExternalID string   `json:"external_id"`
	Title      string   `json:"title"`
	Overview   string   `json:"overview,omitempty"`
	PosterURL  string   `json:"poster_url,omitempty"`
	Year       int      `json:"year,omitempty"`
	Rating     float64  `json:"rating,omitempty"`
	Genres     []string `json:"genres,omitempty"`
}

// PollSummary is built when a poll ends and discarded when the caller
// dismisses it. It is never persisted.
type PollSummary struct {
	Poll         Poll    `json:"poll"`
	Matches      []Movie `json:"matches"`
	Winner       *Movie  `json:"winner,omitempty"`
	TotalVotes   int     `json:"total_votes"`
	Participants int     `json:"participants"`
}

// VoterStats holds per-user vote counts for progress display.
type VoterStats struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Votes       int    `json:"votes"`
	YesVotes    int    `json:"yes_votes"`
}
