// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nestzone/nestwatch/localstore"
	"github.com/nestzone/nestwatch/models"
	"github.com/nestzone/nestwatch/record"
)

// SetupTestStore opens a fresh in-memory record store with the schema applied.
func SetupTestStore(t *testing.T) *localstore.Store {
	t.Helper()

	store, err := localstore.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Failed to close test store: %v", err)
		}
	})

	return store
}

// TestHousehold returns a standard household context for tests.
func TestHousehold() models.HouseholdContext {
	return models.HouseholdContext{
		HomeID: "home-test",
		UserID: "user-alice",
	}
}

// CreateTestHome creates a home record with the given members and returns its ID.
func CreateTestHome(t *testing.T, store record.Store, homeID string, members ...string) string {
	t.Helper()

	rec, err := store.Create(context.Background(), models.CollectionHomes, record.Record{
		"id":      homeID,
		"name":    "Test Home",
		"members": members,
	})
	if err != nil {
		t.Fatalf("Failed to create test home: %v", err)
	}

	return rec.ID()
}

// CreateTestUser creates a user record with a display name.
func CreateTestUser(t *testing.T, store record.Store, userID, name string) {
	t.Helper()

	_, err := store.Create(context.Background(), models.CollectionUsers, record.Record{
		"id":   userID,
		"name": name,
	})
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
}

// CreateTestPoll creates a poll in the given status and returns its ID.
// status should be "draft", "active", or "closed".
func CreateTestPoll(t *testing.T, store record.Store, homeID, status string) string {
	t.Helper()

	rec, err := store.Create(context.Background(), models.CollectionPolls, record.Record{
		"home_id":   homeID,
		"title":     "Movie Night",
		"status":    status,
		"genre_tag": "comedy",
	})
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return rec.ID()
}

// AddTestItem adds a poll item and returns its ID.
func AddTestItem(t *testing.T, store record.Store, pollID, externalID, label string) string {
	t.Helper()

	rec, err := store.Create(context.Background(), models.CollectionPollItems, record.Record{
		"poll_id":     pollID,
		"external_id": externalID,
		"label":       label,
	})
	if err != nil {
		t.Fatalf("Failed to create test poll item: %v", err)
	}

	return rec.ID()
}

// SubmitTestVote records a vote directly in the store.
func SubmitTestVote(t *testing.T, store record.Store, pollID, userID, externalID string, decision bool) {
	t.Helper()

	_, err := store.Create(context.Background(), models.CollectionVotes, record.Record{
		"poll_id":     pollID,
		"user_id":     userID,
		"external_id": externalID,
		"decision":    decision,
	})
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
}

// StubCatalog is a catalog.Lookup backed by an in-memory movie table.
// Lookups for IDs in FailIDs return an error; everything else must be
// present in Movies.
type StubCatalog struct {
	mu      sync.Mutex
	Movies  map[string]models.Movie
	FailIDs map[string]bool
	Calls   int
}

// NewStubCatalog builds a stub that resolves each given external ID to a
// movie titled after it.
func NewStubCatalog(externalIDs ...string) *StubCatalog {
	movies := make(map[string]models.Movie, len(externalIDs))
	for _, id := range externalIDs {
		movies[id] = models.Movie{
			ExternalID: id,
			Title:      "Movie " + id,
			Year:       2024,
			Rating:     7.5,
		}
	}
	return &StubCatalog{Movies: movies, FailIDs: make(map[string]bool)}
}

func (c *StubCatalog) Movie(ctx context.Context, externalID string) (models.Movie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls++
	if c.FailIDs[externalID] {
		return models.Movie{}, fmt.Errorf("catalog lookup failed for %s", externalID)
	}
	movie, ok := c.Movies[externalID]
	if !ok {
		return models.Movie{}, fmt.Errorf("unknown movie %s", externalID)
	}
	return movie, nil
}

// FlakyStore wraps a record.Store and fails Create calls for the
// collections listed in FailCreates. Used to exercise partial-write paths.
type FlakyStore struct {
	record.Store
	FailCreates map[string]bool
}

func (s *FlakyStore) Create(ctx context.Context, collection string, fields record.Record) (record.Record, error) {
	if s.FailCreates[collection] {
		return nil, record.NewError(record.KindNetwork, collection, "injected create failure", nil)
	}
	return s.Store.Create(ctx, collection, fields)
}
