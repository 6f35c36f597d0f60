// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package localstore

import (
	"context"
	"testing"

	"github.com/nestzone/nestwatch/models"
	"github.com/nestzone/nestwatch/record"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreate(t *testing.T, s *Store, collection string, fields record.Record) record.Record {
	t.Helper()

	rec, err := s.Create(context.Background(), collection, fields)
	if err != nil {
		t.Fatalf("Failed to create %s record: %v", collection, err)
	}
	return rec
}

func TestCreateAndGet(t *testing.T) {
	s := setupStore(t)

	created := mustCreate(t, s, models.CollectionPolls, record.Record{
		"home_id": "h1",
		"title":   "Movie Night",
		"status":  "active",
	})

	if created.ID() == "" {
		t.Fatal("Create should mint an id")
	}
	if len(created.ID()) != 15 {
		t.Errorf("minted id %q should be 15 characters", created.ID())
	}
	if created.GetString("created") == "" || created.GetString("updated") == "" {
		t.Error("Create should stamp created/updated")
	}
	if created.Collection() != models.CollectionPolls {
		t.Errorf("Collection() = %q", created.Collection())
	}

	got, err := s.Get(context.Background(), models.CollectionPolls, created.ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.GetString("title") != "Movie Night" {
		t.Errorf("round-trip title = %q", got.GetString("title"))
	}
}

func TestGetNotFound(t *testing.T) {
	s := setupStore(t)

	_, err := s.Get(context.Background(), models.CollectionPolls, "nope")
	if !record.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestCreateHonorsProvidedID(t *testing.T) {
	s := setupStore(t)

	rec := mustCreate(t, s, models.CollectionHomes, record.Record{
		"id":      "home-1",
		"members": []string{"alice", "bob"},
	})
	if rec.ID() != "home-1" {
		t.Errorf("expected provided id to stick, got %q", rec.ID())
	}
}

func TestListFilterSortPage(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, p := range []record.Record{
		{"home_id": "h1", "title": "A", "status": "closed", "created": "2025-01-01 00:00:00.000Z"},
		{"home_id": "h1", "title": "B", "status": "closed", "created": "2025-03-01 00:00:00.000Z"},
		{"home_id": "h1", "title": "C", "status": "active", "created": "2025-02-01 00:00:00.000Z"},
		{"home_id": "h2", "title": "D", "status": "closed", "created": "2025-04-01 00:00:00.000Z"},
	} {
		mustCreate(t, s, models.CollectionPolls, p)
	}

	res, err := s.List(ctx, models.CollectionPolls, record.ListOptions{
		Filter:  record.And(record.Equal("home_id", "h1"), record.Equal("status", "closed")),
		Sort:    "-created",
		PerPage: 1,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	// TotalItems counts matches before the page cut.
	if res.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2", res.TotalItems)
	}
	if len(res.Items) != 1 {
		t.Fatalf("expected 1 page item, got %d", len(res.Items))
	}
	if res.Items[0].GetString("title") != "B" {
		t.Errorf("newest closed poll should be B, got %q", res.Items[0].GetString("title"))
	}
}

func TestListInvalidFilter(t *testing.T) {
	s := setupStore(t)

	_, err := s.List(context.Background(), models.CollectionPolls, record.ListOptions{Filter: "status ~"})
	if record.KindOf(err) != record.KindBadRequest {
		t.Errorf("expected bad-request error, got %v", err)
	}
}

func TestListNumericSort(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// 10 must sort after 9 numerically, not lexicographically.
	for _, rating := range []float64{9, 10, 2} {
		mustCreate(t, s, models.CollectionPollItems, record.Record{"rating": rating})
	}

	res, err := s.List(ctx, models.CollectionPollItems, record.ListOptions{Sort: "-rating"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var got []float64
	for _, rec := range res.Items {
		got = append(got, rec.GetFloat("rating"))
	}
	if got[0] != 10 || got[1] != 9 || got[2] != 2 {
		t.Errorf("descending numeric sort produced %v", got)
	}
}

func TestUpdateMergesAndProtectsMetadata(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created := mustCreate(t, s, models.CollectionPolls, record.Record{
		"home_id": "h1",
		"title":   "Movie Night",
		"status":  "active",
	})

	updated, err := s.Update(ctx, models.CollectionPolls, created.ID(), record.Record{
		"status":  "closed",
		"id":      "spoofed",
		"created": "1999-01-01 00:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.GetString("status") != "closed" {
		t.Errorf("status = %q, want closed", updated.GetString("status"))
	}
	if updated.GetString("title") != "Movie Night" {
		t.Error("unrelated fields must survive a merge")
	}
	// id and created are immutable.
	if updated.ID() != created.ID() {
		t.Errorf("id changed to %q", updated.ID())
	}
	if updated.GetString("created") != created.GetString("created") {
		t.Errorf("created changed to %q", updated.GetString("created"))
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	s := setupStore(t)

	_, err := s.Update(context.Background(), models.CollectionPolls, "nope", record.Record{"status": "closed"})
	if !record.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	poll := mustCreate(t, s, models.CollectionPolls, record.Record{"home_id": "h1", "status": "active"})
	other := mustCreate(t, s, models.CollectionPolls, record.Record{"home_id": "h1", "status": "active"})

	mustCreate(t, s, models.CollectionPollItems, record.Record{"poll_id": poll.ID(), "external_id": "m1"})
	mustCreate(t, s, models.CollectionVotes, record.Record{"poll_id": poll.ID(), "user_id": "alice", "external_id": "m1", "decision": true})
	kept := mustCreate(t, s, models.CollectionVotes, record.Record{"poll_id": other.ID(), "user_id": "alice", "external_id": "m2", "decision": true})

	if err := s.Delete(ctx, models.CollectionPolls, poll.ID()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	items, err := s.List(ctx, models.CollectionPollItems, record.ListOptions{})
	if err != nil {
		t.Fatalf("List items failed: %v", err)
	}
	if len(items.Items) != 0 {
		t.Errorf("expected poll items to cascade, %d left", len(items.Items))
	}

	votes, err := s.List(ctx, models.CollectionVotes, record.ListOptions{})
	if err != nil {
		t.Fatalf("List votes failed: %v", err)
	}
	if len(votes.Items) != 1 || votes.Items[0].ID() != kept.ID() {
		t.Errorf("only the other poll's vote should survive, got %d", len(votes.Items))
	}
}

func TestDeleteMissingRecord(t *testing.T) {
	s := setupStore(t)

	err := s.Delete(context.Background(), models.CollectionPolls, "nope")
	if !record.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "dsn"); err == nil {
		t.Error("expected an error for an unsupported database type")
	}
}
