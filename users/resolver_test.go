// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package users

import (
	"context"
	"sync"
	"testing"

	"github.com/nestzone/nestwatch/record"
	"github.com/nestzone/nestwatch/testutil"
)

// countingStore tracks Get calls per id on top of a real store.
type countingStore struct {
	record.Store
	mu   sync.Mutex
	gets map[string]int
}

func (s *countingStore) Get(ctx context.Context, collection, id string) (record.Record, error) {
	s.mu.Lock()
	s.gets[id]++
	s.mu.Unlock()
	return s.Store.Get(ctx, collection, id)
}

func setupResolver(t *testing.T) (*Resolver, *countingStore) {
	t.Helper()

	records := testutil.SetupTestStore(t)
	testutil.CreateTestUser(t, records, "user-alice", "Alice")
	testutil.CreateTestUser(t, records, "user-bob", "Bob")

	counting := &countingStore{Store: records, gets: make(map[string]int)}
	return New(counting, nil), counting
}

func TestDisplayNamesResolvesAndMemoizes(t *testing.T) {
	r, store := setupResolver(t)
	ctx := context.Background()

	names := r.DisplayNames(ctx, []string{"user-alice", "user-bob"})
	if names["user-alice"] != "Alice" || names["user-bob"] != "Bob" {
		t.Errorf("names = %v", names)
	}

	// Second batch answers from cache.
	r.DisplayNames(ctx, []string{"user-alice", "user-bob"})
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.gets["user-alice"] != 1 || store.gets["user-bob"] != 1 {
		t.Errorf("expected one lookup per id, got %v", store.gets)
	}
}

func TestDisplayNamesFailureIsSticky(t *testing.T) {
	r, store := setupResolver(t)
	ctx := context.Background()

	// user-ghost has no record; the lookup fails and the failure sticks.
	for i := 0; i < 3; i++ {
		names := r.DisplayNames(ctx, []string{"user-ghost"})
		if names["user-ghost"] != "user-user-g" {
			t.Errorf("placeholder = %q", names["user-ghost"])
		}
	}

	store.mu.Lock()
	ghostGets := store.gets["user-ghost"]
	store.mu.Unlock()
	if ghostGets != 1 {
		t.Errorf("failed id was re-looked-up %d times, want 1", ghostGets)
	}
}

func TestRetryClearsFailedEntry(t *testing.T) {
	r, store := setupResolver(t)
	ctx := context.Background()

	r.DisplayNames(ctx, []string{"user-carol"})

	// The user shows up later; Retry is the only way back.
	testutil.CreateTestUser(t, store.Store, "user-carol", "Carol")
	if names := r.DisplayNames(ctx, []string{"user-carol"}); names["user-carol"] == "Carol" {
		t.Error("failed id resolved without Retry")
	}

	r.Retry("user-carol")
	if names := r.DisplayNames(ctx, []string{"user-carol"}); names["user-carol"] != "Carol" {
		t.Errorf("after Retry got %q, want Carol", names["user-carol"])
	}
}

func TestDisplayNamesFallsBackToUsername(t *testing.T) {
	records := testutil.SetupTestStore(t)
	_, err := records.Create(context.Background(), "users", record.Record{
		"id":       "user-dan",
		"username": "danno",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	r := New(records, nil)
	names := r.DisplayNames(context.Background(), []string{"user-dan"})
	if names["user-dan"] != "danno" {
		t.Errorf("expected username fallback, got %q", names["user-dan"])
	}
}
