// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nestzone/nestwatch/catalog"
	"github.com/nestzone/nestwatch/identity"
	"github.com/nestzone/nestwatch/match"
	"github.com/nestzone/nestwatch/models"
	"github.com/nestzone/nestwatch/pollstore"
	"github.com/nestzone/nestwatch/users"
)

const (
	defaultFanout     = 4
	defaultResetDelay = 1500 * time.Millisecond
)

// Controller drives one household's poll session through its lifecycle:
// create or join, stream candidates to the caller, record votes, detect
// matches, and close out with a summary.
//
// All mutable state is guarded by one mutex; candidate detail fetches fan
// out across workers but their results are handed back and applied under
// the lock, never from a worker.
type Controller struct {
	polls   *pollstore.Store
	catalog catalog.Lookup
	users   *users.Resolver
	house   models.HouseholdContext
	logger  *slog.Logger

	fanout     int
	resetDelay time.Duration

	mu         sync.Mutex
	state      State
	poll       models.Poll
	localOnly  bool
	threshold  int
	stack      []models.Movie
	deck       map[string]models.Movie
	matches    []string
	localVotes []models.Vote
	summary    *models.PollSummary
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithFanout bounds the number of concurrent candidate detail fetches.
func WithFanout(n int) Option {
	return func(c *Controller) { c.fanout = n }
}

// WithResetDelay sets how long a summary stays visible before the
// controller returns to idle.
func WithResetDelay(d time.Duration) Option {
	return func(c *Controller) { c.resetDelay = d }
}

// New builds a controller. Dependencies are injected; the controller owns
// no global state.
func New(polls *pollstore.Store, cat catalog.Lookup, usr *users.Resolver, house models.HouseholdContext, opts ...Option) *Controller {
	c := &Controller{
		polls:      polls,
		catalog:    cat,
		users:      usr,
		house:      house,
		logger:     slog.Default(),
		fanout:     defaultFanout,
		resetDelay: defaultResetDelay,
		deck:       make(map[string]models.Movie),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Accessors. Copies only; callers never see internal slices.

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Poll() models.Poll {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poll
}

// Stack returns the candidates still awaiting a vote, top first.
func (c *Controller) Stack() []models.Movie {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Movie, len(c.stack))
	copy(out, c.stack)
	return out
}

// Matches returns the external ids of the current match episode.
func (c *Controller) Matches() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.matches))
	copy(out, c.matches)
	return out
}

// Summary returns the end-of-poll summary while the controller is
// summarizing, nil otherwise.
func (c *Controller) Summary() *models.PollSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// Initialize looks for an already-active poll for the household and joins
// it. With none found the controller stays idle. A join failure resets to
// idle and propagates.
func (c *Controller) Initialize(ctx context.Context) error {
	active, err := c.polls.ActivePoll(ctx, c.house)
	if err != nil {
		return fmt.Errorf("look up active poll: %w", err)
	}
	// Status is string-verified, not just presence-checked.
	if active == nil || active.Status != models.StatusActive {
		return nil
	}
	return c.join(ctx, *active)
}

// join attaches to an existing active poll: figure out which candidates
// the user has not voted on yet, fetch their details, and build the stack.
func (c *Controller) join(ctx context.Context, poll models.Poll) error {
	c.mu.Lock()
	c.state = StateJoining
	c.mu.Unlock()

	var (
		items []models.PollItem
		mine  []models.Vote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = c.polls.PollItems(gctx, poll.ID)
		return err
	})
	g.Go(func() error {
		var err error
		mine, err = c.polls.UserVotes(gctx, poll.ID, c.house.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		c.reset()
		return fmt.Errorf("join poll %s: %w", poll.ID, err)
	}

	voted := make(map[string]bool, len(mine))
	for _, v := range mine {
		voted[v.ExternalID] = true
	}
	unvoted := c.unvotedItems(poll.ID, items, voted, len(mine) == 0)

	movies := c.fetchDetails(ctx, unvoted)
	threshold, err := c.polls.HouseMemberCount(ctx, c.house)
	if err != nil {
		c.logger.Warn("failed to fetch house member count", "error", err)
	}

	c.mu.Lock()
	c.poll = poll
	c.localOnly = false
	c.threshold = threshold
	c.stack = movies
	c.localVotes = nil
	c.matches = nil
	c.summary = nil
	for _, m := range movies {
		c.deck[m.ExternalID] = m
	}
	c.state = StateInPoll
	c.mu.Unlock()

	c.logger.Info("joined active poll",
		"poll_id", poll.ID, "items", len(items), "remaining", len(movies))

	// Already voted on everything: surface any existing outcome instead of
	// an empty deck.
	if len(movies) == 0 && len(mine) > 0 {
		c.checkAllMatches(ctx)
	}
	return nil
}

// unvotedItems filters items down to those the voted set does not cover.
// Zero survivors for a fresh voter means the comparison went inconsistent
// somewhere; recover by treating everything as unvoted rather than handing
// that voter an empty deck.
func (c *Controller) unvotedItems(pollID string, items []models.PollItem, voted map[string]bool, fresh bool) []models.PollItem {
	var unvoted []models.PollItem
	for _, it := range items {
		if !voted[it.ExternalID] {
			unvoted = append(unvoted, it)
		}
	}
	if fresh && len(unvoted) == 0 && len(items) > 0 {
		c.logger.Warn("unvoted-item computation returned nothing for a fresh voter, using full item set",
			"poll_id", pollID)
		unvoted = items
	}
	return unvoted
}

// fetchDetails fans candidate lookups out across a bounded worker pool.
// Individual failures drop that candidate only. Results come back in item
// order and are applied by the caller under the controller lock.
func (c *Controller) fetchDetails(ctx context.Context, items []models.PollItem) []models.Movie {
	results := make([]*models.Movie, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanout)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			movie, err := c.catalog.Movie(gctx, it.ExternalID)
			if err != nil {
				c.logger.Warn("dropping candidate, detail lookup failed",
					"external_id", it.ExternalID, "error", err)
				return nil
			}
			results[i] = &movie
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, failures are per-item

	movies := make([]models.Movie, 0, len(items))
	for _, m := range results {
		if m != nil {
			movies = append(movies, *m)
		}
	}
	return movies
}

// StartPoll creates a poll for the supplied candidates and enters it. The
// candidate list must be non-empty, and only an idle controller may start
// one; a live poll is never silently replaced. Remote failure never blocks play: the
// controller falls back to a local-only poll and reports that outcome, so
// the caller can decide about retry or sync.
func (c *Controller) StartPoll(ctx context.Context, title string, candidates []models.Movie) (pollstore.Outcome, error) {
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}

	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return 0, fmt.Errorf("%w (state %s)", ErrPollInProgress, state)
	}
	c.state = StateCreating
	c.mu.Unlock()

	var (
		poll      models.Poll
		localOnly bool
		outcome   pollstore.Outcome
	)
	res, err := c.polls.CreatePoll(ctx, c.house, title, candidates, "")
	if err != nil {
		c.logger.Warn("poll creation failed, playing locally", "error", err)
		poll = models.Poll{
			ID:        identity.LocalPollID(uuid.NewString()),
			HomeID:    c.house.HomeID,
			Title:     title,
			Status:    models.StatusActive,
			CreatedAt: time.Now(),
		}
		localOnly = true
		outcome = pollstore.OutcomeLocalOnly
	} else {
		poll = res.Poll
		outcome = res.Outcome
	}

	threshold := 0
	if !localOnly {
		threshold, err = c.polls.HouseMemberCount(ctx, c.house)
		if err != nil {
			c.logger.Warn("failed to fetch house member count", "error", err)
			threshold = 0
		}
	}

	c.mu.Lock()
	c.poll = poll
	c.localOnly = localOnly
	c.threshold = threshold
	c.stack = make([]models.Movie, len(candidates))
	copy(c.stack, candidates)
	c.localVotes = nil
	c.matches = nil
	c.summary = nil
	for _, m := range candidates {
		c.deck[m.ExternalID] = m
	}
	c.state = StateInPoll
	c.mu.Unlock()

	c.logger.Info("poll started", "poll_id", poll.ID, "candidates", len(candidates), "outcome", outcome.String())
	return outcome, nil
}

// Vote records the user's decision on a candidate. The candidate leaves
// the stack immediately; submission and match checking are best-effort and
// never block or corrupt the visible state.
//
// After a yes vote only that candidate is checked. After a no vote a full
// sweep runs once the deck is down to its last card. A new match episode
// starts only from the in-poll state, so an unresolved episode is never
// re-triggered.
func (c *Controller) Vote(ctx context.Context, externalID string, decision bool) {
	c.mu.Lock()
	if c.state != StateInPoll && c.state != StateMatchPending {
		c.mu.Unlock()
		c.logger.Warn("vote ignored outside poll", "state", c.state.String())
		return
	}
	for i, m := range c.stack {
		if m.ExternalID == externalID {
			c.stack = append(c.stack[:i], c.stack[i+1:]...)
			break
		}
	}
	remaining := len(c.stack)
	pollID := c.poll.ID
	localOnly := c.localOnly
	c.localVotes = append(c.localVotes, models.Vote{
		PollID:     pollID,
		UserID:     c.house.UserID,
		ExternalID: externalID,
		Decision:   decision,
		CreatedAt:  time.Now(),
	})
	c.mu.Unlock()

	if !localOnly {
		if err := c.polls.SubmitVote(ctx, c.house, pollID, externalID, decision); err != nil {
			c.logger.Error("failed to submit vote", "poll_id", pollID, "external_id", externalID, "error", err)
		}
	}

	votes, threshold := c.votesForMatching(ctx)
	if threshold <= 0 {
		return
	}
	if decision {
		if match.IsMatch(votes, threshold, externalID) {
			c.enterMatch([]string{externalID})
		}
		return
	}
	if remaining <= 1 {
		if all := match.Matches(votes, threshold); len(all) > 0 {
			c.enterMatch(all)
		}
	}
}

// votesForMatching returns the vote set and threshold for a match check.
// Remote fetch failures degrade to the optimistic local votes so a check
// can still run.
func (c *Controller) votesForMatching(ctx context.Context) ([]models.Vote, int) {
	c.mu.Lock()
	pollID := c.poll.ID
	localOnly := c.localOnly
	local := make([]models.Vote, len(c.localVotes))
	copy(local, c.localVotes)
	c.mu.Unlock()

	if localOnly {
		return local, c.localThreshold(local)
	}

	votes, err := c.polls.Votes(ctx, pollID)
	if err != nil {
		c.logger.Warn("vote fetch failed, matching against local votes", "error", err)
		votes = local
	}
	return votes, c.memberThreshold(ctx)
}

// memberThreshold returns the cached household member count, refetching
// when it was never obtained.
func (c *Controller) memberThreshold(ctx context.Context) int {
	c.mu.Lock()
	threshold := c.threshold
	c.mu.Unlock()
	if threshold > 0 {
		return threshold
	}

	threshold, err := c.polls.HouseMemberCount(ctx, c.house)
	if err != nil || threshold <= 0 {
		// A guessed threshold of 1 would make any single yes a match, so
		// report "unknown" and let the caller skip the check.
		c.logger.Warn("no usable member count, skipping match checks", "error", err)
		return 0
	}
	c.mu.Lock()
	c.threshold = threshold
	c.mu.Unlock()
	return threshold
}

// localThreshold: local-only play has exactly the voters we saw.
func (c *Controller) localThreshold(votes []models.Vote) int {
	seen := make(map[string]bool)
	for _, v := range votes {
		seen[v.UserID] = true
	}
	if len(seen) == 0 {
		return 1
	}
	return len(seen)
}

// enterMatch starts a match episode. The in-poll state is the latch: an
// episode already pending absorbs further hits until ContinuePoll.
func (c *Controller) enterMatch(externalIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInPoll {
		return
	}
	c.state = StateMatchPending
	c.matches = externalIDs
	c.logger.Info("match found", "poll_id", c.poll.ID, "matches", len(externalIDs))
}

// checkAllMatches runs a full-set sweep, used when joining a poll the user
// has already finished voting in.
func (c *Controller) checkAllMatches(ctx context.Context) {
	votes, threshold := c.votesForMatching(ctx)
	if threshold <= 0 {
		return
	}
	if all := match.Matches(votes, threshold); len(all) > 0 {
		c.enterMatch(all)
	}
}

// ContinuePoll resolves the current match episode and resumes voting.
func (c *Controller) ContinuePoll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateMatchPending {
		return
	}
	c.matches = nil
	c.state = StateInPoll
}

// EndPollWithWinner closes the poll with an explicitly chosen winner and
// returns the summary.
func (c *Controller) EndPollWithWinner(ctx context.Context, winner models.Movie) (*models.PollSummary, error) {
	return c.end(ctx, &winner)
}

// EndPoll closes the poll without an explicit selection; the winner
// defaults to the first matched candidate in first-seen vote order.
func (c *Controller) EndPoll(ctx context.Context) (*models.PollSummary, error) {
	return c.end(ctx, nil)
}

// end builds the summary, closes the poll remotely, and schedules the
// return to idle. A vote-fetch failure while building the summary leaves
// the controller in the match-pending state and returns the error; the
// caller may retry the end call or abandon via ClosePoll.
func (c *Controller) end(ctx context.Context, winner *models.Movie) (*models.PollSummary, error) {
	c.mu.Lock()
	if c.state != StateMatchPending {
		c.mu.Unlock()
		return nil, ErrNoMatchEpisode
	}
	poll := c.poll
	localOnly := c.localOnly
	matchIDs := make([]string, len(c.matches))
	copy(matchIDs, c.matches)
	local := make([]models.Vote, len(c.localVotes))
	copy(local, c.localVotes)
	c.mu.Unlock()

	votes := local
	if !localOnly {
		var err error
		votes, err = c.polls.Votes(ctx, poll.ID)
		if err != nil {
			// Still match-pending; the caller decides between retry and close.
			return nil, fmt.Errorf("build poll summary: %w", err)
		}
	}

	participants := make(map[string]bool)
	for _, v := range votes {
		participants[v.UserID] = true
	}

	matchMovies := make([]models.Movie, 0, len(matchIDs))
	c.mu.Lock()
	for _, id := range matchIDs {
		if m, ok := c.deck[id]; ok {
			matchMovies = append(matchMovies, m)
		} else {
			matchMovies = append(matchMovies, models.Movie{ExternalID: id})
		}
	}
	c.mu.Unlock()

	if winner == nil && len(matchMovies) > 0 {
		winner = &matchMovies[0]
	}

	if !localOnly {
		var err error
		if winner != nil {
			err = c.polls.CloseWithWinner(ctx, poll.ID, *winner)
		} else {
			err = c.polls.ClosePoll(ctx, poll.ID)
		}
		if err != nil {
			c.logger.Error("failed to close poll remotely", "poll_id", poll.ID, "error", err)
		}
	}

	summary := &models.PollSummary{
		Poll:         poll,
		Matches:      matchMovies,
		Winner:       winner,
		TotalVotes:   len(votes),
		Participants: len(participants),
	}

	c.mu.Lock()
	c.state = StateSummarizing
	c.summary = summary
	c.mu.Unlock()

	time.AfterFunc(c.resetDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == StateSummarizing {
			c.resetLocked()
		}
	})
	return summary, nil
}

// ClosePoll is explicit abandonment: close remotely if possible, then clear
// every bit of in-memory poll state unconditionally.
func (c *Controller) ClosePoll(ctx context.Context) {
	c.mu.Lock()
	pollID := c.poll.ID
	closable := pollID != "" && !c.localOnly
	c.mu.Unlock()

	if closable {
		if err := c.polls.ClosePoll(ctx, pollID); err != nil {
			c.logger.Warn("failed to close poll remotely", "poll_id", pollID, "error", err)
		}
	}
	c.reset()
}

func (c *Controller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.state = StateIdle
	c.poll = models.Poll{}
	c.localOnly = false
	c.threshold = 0
	c.stack = nil
	c.deck = make(map[string]models.Movie)
	c.matches = nil
	c.localVotes = nil
	c.summary = nil
}

// VoterStats computes per-user vote counts for progress display, resolving
// display names with placeholder fallback.
func (c *Controller) VoterStats(ctx context.Context) ([]models.VoterStats, error) {
	c.mu.Lock()
	poll := c.poll
	localOnly := c.localOnly
	local := make([]models.Vote, len(c.localVotes))
	copy(local, c.localVotes)
	c.mu.Unlock()

	if poll.ID == "" {
		return nil, nil
	}

	votes := local
	if !localOnly {
		var err error
		votes, err = c.polls.Votes(ctx, poll.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch votes for stats: %w", err)
		}
	}

	byUser := make(map[string]*models.VoterStats)
	var ids []string
	for _, v := range votes {
		st, ok := byUser[v.UserID]
		if !ok {
			st = &models.VoterStats{UserID: v.UserID}
			byUser[v.UserID] = st
			ids = append(ids, v.UserID)
		}
		st.Votes++
		if v.Decision {
			st.YesVotes++
		}
	}

	names := c.users.DisplayNames(ctx, ids)
	stats := make([]models.VoterStats, 0, len(ids))
	for _, id := range ids {
		st := *byUser[id]
		st.DisplayName = names[id]
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Votes != stats[j].Votes {
			return stats[i].Votes > stats[j].Votes
		}
		return stats[i].UserID < stats[j].UserID
	})
	return stats, nil
}
