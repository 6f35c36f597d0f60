// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package pollstore is the typed facade over the record store for polls,
candidates, and votes.

Every household-scoped operation takes a models.HouseholdContext; nothing
here guesses a "current" household. CreatePoll reports an explicit Outcome
(persisted / partial / local-only / failed) instead of hiding partial
persistence in logs.
*/
package pollstore
