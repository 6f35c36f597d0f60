// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import "errors"

// State is the controller's lifecycle position. "A match episode is being
// decided" is a state, not a flag, so it cannot desync from the rest of
// the controller.
type State int

const (
	StateIdle State = iota
	StateJoining
	StateCreating
	StateInPoll
	StateMatchPending
	StateSummarizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StateCreating:
		return "creating"
	case StateInPoll:
		return "in-poll"
	case StateMatchPending:
		return "match-pending"
	case StateSummarizing:
		return "summarizing"
	}
	return "unknown"
}

var (
	// ErrNoCandidates rejects starting a poll with an empty candidate list
	// before any network call.
	ErrNoCandidates = errors.New("session: poll needs at least one candidate")

	// ErrNoMatchEpisode means an end/continue call arrived with no match
	// episode pending.
	ErrNoMatchEpisode = errors.New("session: no match episode to resolve")

	// ErrPollInProgress rejects starting a poll while another one is live.
	ErrPollInProgress = errors.New("session: a poll is already in progress")
)
