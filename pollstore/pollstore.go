// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pollstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nestzone/nestwatch/match"
	"github.com/nestzone/nestwatch/models"
	"github.com/nestzone/nestwatch/record"
)

// Outcome reports how much of a poll creation actually persisted. The
// store never hides partial failure in logs; the caller decides what to do
// with it.
type Outcome int

const (
	// OutcomePersisted: poll and every item stored.
	OutcomePersisted Outcome = iota + 1
	// OutcomePartial: poll stored, one or more items failed. Not rolled back.
	OutcomePartial
	// OutcomeLocalOnly: nothing stored remotely; the session plays locally.
	OutcomeLocalOnly
	// OutcomeFailed: the poll record itself could not be created.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePersisted:
		return "persisted"
	case OutcomePartial:
		return "partial"
	case OutcomeLocalOnly:
		return "local-only"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// CreateResult is the outcome of CreatePoll.
type CreateResult struct {
	Poll        models.Poll
	Outcome     Outcome
	FailedItems []string // external ids whose item record failed
}

// Store is the typed poll/item/vote facade over a record store. Every call
// scoping to a household takes the context explicitly.
type Store struct {
	records record.Store
	logger  *slog.Logger
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(records record.Store, opts ...Option) *Store {
	s := &Store{records: records, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePoll creates the poll record first (items reference its id), then
// one item per candidate. Item failures are collected, not rolled back;
// the result says exactly how much persisted.
func (s *Store) CreatePoll(ctx context.Context, house models.HouseholdContext, title string, candidates []models.Movie, genreTag string) (CreateResult, error) {
	fields := record.Record{
		"home_id": house.HomeID,
		"title":   title,
		"status":  models.StatusActive,
	}
	if genreTag != "" {
		fields["genre_tag"] = genreTag
	}

	rec, err := s.records.Create(ctx, models.CollectionPolls, fields)
	if err != nil {
		return CreateResult{Outcome: OutcomeFailed}, fmt.Errorf("create poll: %w", err)
	}
	poll := pollFromRecord(rec)

	result := CreateResult{Poll: poll, Outcome: OutcomePersisted}
	for _, c := range candidates {
		_, err := s.records.Create(ctx, models.CollectionPollItems, record.Record{
			"poll_id":     poll.ID,
			"external_id": c.ExternalID,
			"label":       c.Title,
		})
		if err != nil {
			s.logger.Error("failed to create poll item",
				"poll_id", poll.ID, "external_id", c.ExternalID, "error", err)
			result.Outcome = OutcomePartial
			result.FailedItems = append(result.FailedItems, c.ExternalID)
		}
	}

	s.logger.Info("poll created",
		"poll_id", poll.ID, "home_id", house.HomeID, "items", len(candidates), "outcome", result.Outcome.String())
	return result, nil
}

// ActivePoll returns the household's poll whose status is exactly active,
// newest first, or nil when there is none.
func (s *Store) ActivePoll(ctx context.Context, house models.HouseholdContext) (*models.Poll, error) {
	res, err := s.records.List(ctx, models.CollectionPolls, record.ListOptions{
		Filter:  record.And(record.Equal("home_id", house.HomeID), record.Equal("status", models.StatusActive)),
		Sort:    "-created",
		PerPage: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("query active poll: %w", err)
	}
	if len(res.Items) == 0 {
		return nil, nil
	}
	poll := pollFromRecord(res.Items[0])
	return &poll, nil
}

// RecentPoll returns the household's latest poll regardless of status.
// Diagnostic lookup only; business logic goes through ActivePoll.
func (s *Store) RecentPoll(ctx context.Context, house models.HouseholdContext) (*models.Poll, error) {
	res, err := s.records.List(ctx, models.CollectionPolls, record.ListOptions{
		Filter:  record.Equal("home_id", house.HomeID),
		Sort:    "-created",
		PerPage: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("query recent poll: %w", err)
	}
	if len(res.Items) == 0 {
		return nil, nil
	}
	poll := pollFromRecord(res.Items[0])
	return &poll, nil
}

// PollItems returns every candidate of a poll.
func (s *Store) PollItems(ctx context.Context, pollID string) ([]models.PollItem, error) {
	res, err := s.records.List(ctx, models.CollectionPollItems, record.ListOptions{
		Filter: record.Equal("poll_id", pollID),
		Sort:   "created",
	})
	if err != nil {
		return nil, fmt.Errorf("query poll items: %w", err)
	}
	items := make([]models.PollItem, len(res.Items))
	for i, rec := range res.Items {
		items[i] = itemFromRecord(rec)
	}
	return items, nil
}

// Votes returns every vote cast in a poll.
func (s *Store) Votes(ctx context.Context, pollID string) ([]models.Vote, error) {
	return s.votes(ctx, record.Equal("poll_id", pollID))
}

// UserVotes returns the given user's votes in a poll.
func (s *Store) UserVotes(ctx context.Context, pollID, userID string) ([]models.Vote, error) {
	return s.votes(ctx, record.And(record.Equal("poll_id", pollID), record.Equal("user_id", userID)))
}

func (s *Store) votes(ctx context.Context, filter string) ([]models.Vote, error) {
	res, err := s.records.List(ctx, models.CollectionVotes, record.ListOptions{
		Filter: filter,
		Sort:   "created",
	})
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	votes := make([]models.Vote, len(res.Items))
	for i, rec := range res.Items {
		votes[i] = voteFromRecord(rec)
	}
	return votes, nil
}

// SubmitVote creates one vote record for the acting user.
func (s *Store) SubmitVote(ctx context.Context, house models.HouseholdContext, pollID, externalID string, decision bool) error {
	_, err := s.records.Create(ctx, models.CollectionVotes, record.Record{
		"poll_id":     pollID,
		"user_id":     house.UserID,
		"external_id": externalID,
		"decision":    decision,
	})
	if err != nil {
		return fmt.Errorf("submit vote: %w", err)
	}
	return nil
}

// HouseMemberCount returns the number of household members, used as the
// match threshold.
func (s *Store) HouseMemberCount(ctx context.Context, house models.HouseholdContext) (int, error) {
	rec, err := s.records.Get(ctx, models.CollectionHomes, house.HomeID)
	if err != nil {
		return 0, fmt.Errorf("get home: %w", err)
	}
	return len(rec.GetStrings("members")), nil
}

// Matches delegates to the match engine; exposed here for convenience so
// callers holding a Store need not import it.
func (s *Store) Matches(votes []models.Vote, houseMemberCount int) []string {
	return match.Matches(votes, houseMemberCount)
}

// ClosePoll sets the poll status to closed.
func (s *Store) ClosePoll(ctx context.Context, pollID string) error {
	_, err := s.records.Update(ctx, models.CollectionPolls, pollID, record.Record{
		"status": models.StatusClosed,
	})
	if err != nil {
		return fmt.Errorf("close poll: %w", err)
	}
	s.logger.Info("poll closed", "poll_id", pollID)
	return nil
}

// CloseWithWinner closes the poll and records the chosen winner on it.
func (s *Store) CloseWithWinner(ctx context.Context, pollID string, winner models.Movie) error {
	_, err := s.records.Update(ctx, models.CollectionPolls, pollID, record.Record{
		"status":             models.StatusClosed,
		"winner_external_id": winner.ExternalID,
		"winner_title":       winner.Title,
	})
	if err != nil {
		return fmt.Errorf("close poll with winner: %w", err)
	}
	s.logger.Info("poll closed", "poll_id", pollID, "winner", winner.ExternalID)
	return nil
}

// DeletePoll removes the poll; the store cascades items and votes.
func (s *Store) DeletePoll(ctx context.Context, pollID string) error {
	if err := s.records.Delete(ctx, models.CollectionPolls, pollID); err != nil {
		return fmt.Errorf("delete poll: %w", err)
	}
	return nil
}

// PreviousPolls lists the household's closed polls, newest first.
func (s *Store) PreviousPolls(ctx context.Context, house models.HouseholdContext, limit int) ([]models.Poll, error) {
	res, err := s.records.List(ctx, models.CollectionPolls, record.ListOptions{
		Filter:  record.And(record.Equal("home_id", house.HomeID), record.Equal("status", models.StatusClosed)),
		Sort:    "-created",
		PerPage: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query previous polls: %w", err)
	}
	polls := make([]models.Poll, len(res.Items))
	for i, rec := range res.Items {
		polls[i] = pollFromRecord(rec)
	}
	return polls, nil
}

// PollWinner returns the winner recorded on a closed poll, or nil when the
// poll ended without one.
func (s *Store) PollWinner(ctx context.Context, pollID string) (*models.Movie, error) {
	rec, err := s.records.Get(ctx, models.CollectionPolls, pollID)
	if err != nil {
		return nil, fmt.Errorf("get poll: %w", err)
	}
	externalID := rec.GetString("winner_external_id")
	if externalID == "" {
		return nil, nil
	}
	return &models.Movie{
		ExternalID: externalID,
		Title:      rec.GetString("winner_title"),
	}, nil
}

// Record conversions. The record store is schemaless; these are the only
// places field names appear.

func pollFromRecord(rec record.Record) models.Poll {
	return models.Poll{
		ID:        rec.ID(),
		HomeID:    rec.GetString("home_id"),
		Title:     rec.GetString("title"),
		Status:    rec.GetString("status"),
		GenreTag:  rec.GetString("genre_tag"),
		WinnerID:  rec.GetString("winner_external_id"),
		CreatedAt: rec.GetTime("created"),
	}
}

func itemFromRecord(rec record.Record) models.PollItem {
	return models.PollItem{
		ID:         rec.ID(),
		PollID:     rec.GetString("poll_id"),
		ExternalID: rec.GetString("external_id"),
		Label:      rec.GetString("label"),
	}
}

func voteFromRecord(rec record.Record) models.Vote {
	return models.Vote{
		ID:         rec.ID(),
		PollID:     rec.GetString("poll_id"),
		UserID:     rec.GetString("user_id"),
		ExternalID: rec.GetString("external_id"),
		Decision:   rec.GetBool("decision"),
		CreatedAt:  rec.GetTime("created"),
	}
}
