// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pollstore

import (
	"context"
	"testing"

	"github.com/nestzone/nestwatch/models"
	"github.com/nestzone/nestwatch/testutil"
)

func movie(id, title string) models.Movie {
	return models.Movie{ExternalID: id, Title: title}
}

func TestCreatePollPersistsEverything(t *testing.T) {
	records := testutil.SetupTestStore(t)
	s := New(records)
	house := testutil.TestHousehold()
	ctx := context.Background()

	res, err := s.CreatePoll(ctx, house, "Friday Night", []models.Movie{
		movie("m1", "Heat"),
		movie("m2", "Ronin"),
	}, "action")
	if err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}

	if res.Outcome != OutcomePersisted {
		t.Errorf("outcome = %s, want persisted", res.Outcome)
	}
	if res.Poll.ID == "" || res.Poll.Status != models.StatusActive {
		t.Errorf("poll = %+v", res.Poll)
	}
	if res.Poll.GenreTag != "action" {
		t.Errorf("genre tag = %q", res.Poll.GenreTag)
	}

	items, err := s.PollItems(ctx, res.Poll.ID)
	if err != nil {
		t.Fatalf("PollItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].PollID != res.Poll.ID || items[0].Label == "" {
		t.Errorf("item = %+v", items[0])
	}
}

func TestCreatePollPartialFailure(t *testing.T) {
	records := testutil.SetupTestStore(t)
	flaky := &testutil.FlakyStore{
		Store:       records,
		FailCreates: map[string]bool{models.CollectionPollItems: true},
	}
	s := New(flaky)
	ctx := context.Background()

	res, err := s.CreatePoll(ctx, testutil.TestHousehold(), "Friday Night", []models.Movie{
		movie("m1", "Heat"),
		movie("m2", "Ronin"),
	}, "")
	if err != nil {
		t.Fatalf("CreatePoll should not fail outright on item errors: %v", err)
	}

	// The poll itself persisted; the failed items are reported, not hidden.
	if res.Outcome != OutcomePartial {
		t.Errorf("outcome = %s, want partial", res.Outcome)
	}
	if len(res.FailedItems) != 2 {
		t.Errorf("FailedItems = %v", res.FailedItems)
	}
	if poll, err := s.ActivePoll(ctx, testutil.TestHousehold()); err != nil || poll == nil {
		t.Errorf("poll record should exist despite item failures (poll=%v err=%v)", poll, err)
	}
}

func TestCreatePollFailedOutcome(t *testing.T) {
	records := testutil.SetupTestStore(t)
	flaky := &testutil.FlakyStore{
		Store:       records,
		FailCreates: map[string]bool{models.CollectionPolls: true},
	}
	s := New(flaky)

	res, err := s.CreatePoll(context.Background(), testutil.TestHousehold(), "Friday Night", nil, "")
	if err == nil {
		t.Fatal("expected an error when the poll record cannot be created")
	}
	if res.Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want failed", res.Outcome)
	}
}

func TestActivePollExactStatusMatch(t *testing.T) {
	records := testutil.SetupTestStore(t)
	s := New(records)
	house := testutil.TestHousehold()
	ctx := context.Background()

	// Draft and closed polls never count as active.
	testutil.CreateTestPoll(t, records, house.HomeID, models.StatusDraft)
	testutil.CreateTestPoll(t, records, house.HomeID, models.StatusClosed)

	poll, err := s.ActivePoll(ctx, house)
	if err != nil {
		t.Fatalf("ActivePoll failed: %v", err)
	}
	if poll != nil {
		t.Errorf("expected no active poll, got %+v", poll)
	}

	activeID := testutil.CreateTestPoll(t, records, house.HomeID, models.StatusActive)
	poll, err = s.ActivePoll(ctx, house)
	if err != nil {
		t.Fatalf("ActivePoll failed: %v", err)
	}
	if poll == nil || poll.ID != activeID {
		t.Errorf("expected poll %s, got %+v", activeID, poll)
	}

	// Other households' polls are invisible.
	if p, _ := s.ActivePoll(ctx, models.HouseholdContext{HomeID: "other-home", UserID: "x"}); p != nil {
		t.Errorf("foreign household saw poll %+v", p)
	}
}

func TestVotesAndUserVotes(t *testing.T) {
	records := testutil.SetupTestStore(t)
	s := New(records)
	house := testutil.TestHousehold()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, records, house.HomeID, models.StatusActive)
	if err := s.SubmitVote(ctx, house, pollID, "m1", true); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	testutil.SubmitTestVote(t, records, pollID, "user-bob", "m1", false)

	all, err := s.Votes(ctx, pollID)
	if err != nil {
		t.Fatalf("Votes failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 votes, got %d", len(all))
	}

	mine, err := s.UserVotes(ctx, pollID, house.UserID)
	if err != nil {
		t.Fatalf("UserVotes failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ExternalID != "m1" || !mine[0].Decision {
		t.Errorf("user votes = %+v", mine)
	}
}

func TestHouseMemberCount(t *testing.T) {
	records := testutil.SetupTestStore(t)
	s := New(records)
	house := testutil.TestHousehold()

	testutil.CreateTestHome(t, records, house.HomeID, "user-alice", "user-bob", "user-carol")

	n, err := s.HouseMemberCount(context.Background(), house)
	if err != nil {
		t.Fatalf("HouseMemberCount failed: %v", err)
	}
	if n != 3 {
		t.Errorf("member count = %d, want 3", n)
	}
}

func TestCloseWithWinnerRoundTrip(t *testing.T) {
	records := testutil.SetupTestStore(t)
	s := New(records)
	house := testutil.TestHousehold()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, records, house.HomeID, models.StatusActive)
	if err := s.CloseWithWinner(ctx, pollID, movie("m1", "Heat")); err != nil {
		t.Fatalf("CloseWithWinner failed: %v", err)
	}

	if p, _ := s.ActivePoll(ctx, house); p != nil {
		t.Error("closed poll still reads as active")
	}

	winner, err := s.PollWinner(ctx, pollID)
	if err != nil {
		t.Fatalf("PollWinner failed: %v", err)
	}
	if winner == nil || winner.ExternalID != "m1" || winner.Title != "Heat" {
		t.Errorf("winner = %+v", winner)
	}
}

func TestPollWinnerAbsent(t *testing.T) {
	records := testutil.SetupTestStore(t)
	s := New(records)
	house := testutil.TestHousehold()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, records, house.HomeID, models.StatusActive)
	if err := s.ClosePoll(ctx, pollID); err != nil {
		t.Fatalf("ClosePoll failed: %v", err)
	}

	winner, err := s.PollWinner(ctx, pollID)
	if err != nil {
		t.Fatalf("PollWinner failed: %v", err)
	}
	if winner != nil {
		t.Errorf("expected no winner, got %+v", winner)
	}
}

func TestPreviousPollsNewestFirst(t *testing.T) {
	records := testutil.SetupTestStore(t)
	s := New(records)
	house := testutil.TestHousehold()
	ctx := context.Background()

	// Distinct created stamps so ordering is unambiguous.
	for i, created := range []string{
		"2025-01-01 00:00:00.000Z",
		"2025-02-01 00:00:00.000Z",
		"2025-03-01 00:00:00.000Z",
	} {
		_, err := records.Create(ctx, models.CollectionPolls, map[string]any{
			"home_id": house.HomeID,
			"title":   []string{"January", "February", "March"}[i],
			"status":  models.StatusClosed,
			"created": created,
		})
		if err != nil {
			t.Fatalf("seed poll: %v", err)
		}
	}
	testutil.CreateTestPoll(t, records, house.HomeID, models.StatusActive)

	polls, err := s.PreviousPolls(ctx, house, 2)
	if err != nil {
		t.Fatalf("PreviousPolls failed: %v", err)
	}
	if len(polls) != 2 {
		t.Fatalf("expected 2 polls, got %d", len(polls))
	}
	if polls[0].Title != "March" || polls[1].Title != "February" {
		t.Errorf("order = [%s, %s]", polls[0].Title, polls[1].Title)
	}
}

func TestDeletePollCascades(t *testing.T) {
	records := testutil.SetupTestStore(t)
	s := New(records)
	house := testutil.TestHousehold()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, records, house.HomeID, models.StatusActive)
	testutil.AddTestItem(t, records, pollID, "m1", "Heat")
	testutil.SubmitTestVote(t, records, pollID, house.UserID, "m1", true)

	if err := s.DeletePoll(ctx, pollID); err != nil {
		t.Fatalf("DeletePoll failed: %v", err)
	}

	items, err := s.PollItems(ctx, pollID)
	if err != nil {
		t.Fatalf("PollItems failed: %v", err)
	}
	votes, err := s.Votes(ctx, pollID)
	if err != nil {
		t.Fatalf("Votes failed: %v", err)
	}
	if len(items) != 0 || len(votes) != 0 {
		t.Errorf("cascade left %d items, %d votes", len(items), len(votes))
	}
}
