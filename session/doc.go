// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session contains the poll session controller, the stateful
orchestrator of a household's movie poll.

# Lifecycle

	Idle -> Joining ---------\
	Idle -> Creating -> InPoll <-> MatchPending -> Summarizing -> Idle
	               InPoll -> Idle (explicit close)

Joining attaches to an already-active poll: the user's unvoted candidates
are computed, their details fetched concurrently, and the swipe stack
rebuilt. Voting is optimistic: the card leaves the stack immediately, the
vote record and all match checking are best-effort. A match moves the
controller to MatchPending exactly once per episode; ContinuePoll resumes,
EndPoll/EndPollWithWinner close out with a summary, ClosePoll abandons.

Remote failures during voting, match checking, and closing are logged and
swallowed; the visible stack stays valid and continuable. The two loud
paths are joining (resets to idle and propagates) and summary construction
(stays MatchPending and returns the error so the caller can retry).
*/
package session
