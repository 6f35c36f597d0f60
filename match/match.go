// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package match

import "github.com/nestzone/nestwatch/models"

// Matches computes which candidates qualify as a match: every external id
// whose yes-vote count reaches threshold (the household member count).
//
// Votes are counted as given. A user who somehow voted twice on the same
// candidate is counted twice; deduplication is the store's problem, not
// this function's. With threshold <= 0 every candidate that received any
// vote trivially qualifies.
//
// The result preserves first-seen order of external ids in the vote list,
// but callers must not depend on order.
func Matches(votes []models.Vote, threshold int) []string {
	yes := make(map[string]int, len(votes))
	var order []string
	for _, v := range votes {
		if _, seen := yes[v.ExternalID]; !seen {
			yes[v.ExternalID] = 0
			order = append(order, v.ExternalID)
		}
		if v.Decision {
			yes[v.ExternalID]++
		}
	}

	var matched []string
	for _, id := range order {
		if yes[id] >= threshold {
			matched = append(matched, id)
		}
	}
	return matched
}

// IsMatch checks a single candidate, used after a yes vote to avoid a full
// set scan on every swipe.
func IsMatch(votes []models.Vote, threshold int, externalID string) bool {
	count := 0
	voted := false
	for _, v := range votes {
		if v.ExternalID != externalID {
			continue
		}
		voted = true
		if v.Decision {
			count++
		}
	}
	return voted && count >= threshold
}
