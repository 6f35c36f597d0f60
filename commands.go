// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/nestzone/nestwatch/catalog"
	"github.com/nestzone/nestwatch/cliparse"
	"github.com/nestzone/nestwatch/localstore"
	"github.com/nestzone/nestwatch/models"
	"github.com/nestzone/nestwatch/pocketbase"
	"github.com/nestzone/nestwatch/pollstore"
	"github.com/nestzone/nestwatch/realtime"
	"github.com/nestzone/nestwatch/record"
	"github.com/nestzone/nestwatch/session"
	"github.com/nestzone/nestwatch/users"
)

// runCommand dispatches the positional command to its handler.
func runCommand(ctx context.Context, cfg cliparse.Config, logger *slog.Logger) error {
	switch cfg.Command {
	case "status":
		return cmdStatus(ctx, cfg, logger)
	case "watch":
		return cmdWatch(ctx, cfg, logger)
	case "history":
		return cmdHistory(ctx, cfg, logger)
	case "play":
		return cmdPlay(ctx, cfg, logger, false)
	case "offline":
		return cmdPlay(ctx, cfg, logger, true)
	default:
		return fmt.Errorf("unknown command %q (want status, watch, history, play, or offline)", cfg.Command)
	}
}

// newController wires a session controller against the chosen record store.
// Offline mode plays entirely against the local database.
func newController(cfg cliparse.Config, logger *slog.Logger, offline bool) (*session.Controller, func(), error) {
	var records record.Store
	closeStore := func() {}

	if offline {
		store, err := localstore.Open(cfg.DatabaseType, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open local store: %w", err)
		}
		records = store
		closeStore = func() { store.Close() }
	} else {
		records = pocketbase.New(cfg.ServerURL, cfg.AuthToken, pocketbase.WithLogger(logger))
	}

	polls := pollstore.New(records, pollstore.WithLogger(logger))
	cat := catalog.New(cfg.CatalogURL, cfg.CatalogKey, catalog.WithLogger(logger))
	resolver := users.New(records, logger)
	house := models.HouseholdContext{HomeID: cfg.HomeID, UserID: cfg.UserID}

	ctrl := session.New(polls, cat, resolver, house, session.WithLogger(logger))
	return ctrl, closeStore, nil
}

// cmdStatus joins the household's active poll (if any) and prints where it stands.
func cmdStatus(ctx context.Context, cfg cliparse.Config, logger *slog.Logger) error {
	ctrl, closeStore, err := newController(cfg, logger, false)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := ctrl.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}

	if ctrl.State() == session.StateIdle {
		fmt.Println("No active poll.")
		return nil
	}

	poll := ctrl.Poll()
	fmt.Printf("Poll: %s (%s)\n", poll.Title, poll.Status)
	fmt.Printf("State: %s\n", ctrl.State())
	fmt.Printf("Left to swipe: %d\n", len(ctrl.Stack()))
	if matches := ctrl.Matches(); len(matches) > 0 {
		fmt.Printf("Matched: %s\n", strings.Join(matches, ", "))
	}

	stats, err := ctrl.VoterStats(ctx)
	if err != nil {
		logger.Warn("voter stats unavailable", "error", err)
		return nil
	}
	for _, s := range stats {
		fmt.Printf("  %s: %d votes (%d yes)\n", s.DisplayName, s.Votes, s.YesVotes)
	}
	return nil
}

// cmdWatch tails the server's realtime stream for poll and vote activity
// in this household until interrupted.
func cmdWatch(ctx context.Context, cfg cliparse.Config, logger *slog.Logger) error {
	rt := realtime.NewTransport(cfg.ServerURL,
		realtime.WithLogger(logger),
		realtime.WithForeignKeyHint(models.CollectionVotes, "poll_id"),
		realtime.WithForeignKeyHint(models.CollectionPollItems, "poll_id"),
	)
	defer rt.ClearAllSubscriptions()

	onEvent := func(ev realtime.Event) {
		fmt.Printf("[%s] %s %s\n", ev.Record.Collection(), ev.Action, ev.Record.ID())
	}
	for _, topic := range []string{models.CollectionPolls, models.CollectionVotes} {
		if err := rt.Subscribe(ctx, topic, onEvent); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	logger.Info("watching realtime stream", "server", cfg.ServerURL)
	<-ctx.Done()
	return nil
}

// cmdHistory lists the household's recently closed polls and their winners.
func cmdHistory(ctx context.Context, cfg cliparse.Config, logger *slog.Logger) error {
	records := pocketbase.New(cfg.ServerURL, cfg.AuthToken, pocketbase.WithLogger(logger))
	polls := pollstore.New(records, pollstore.WithLogger(logger))
	house := models.HouseholdContext{HomeID: cfg.HomeID, UserID: cfg.UserID}

	previous, err := polls.PreviousPolls(ctx, house, 10)
	if err != nil {
		return fmt.Errorf("list previous polls: %w", err)
	}
	if len(previous) == 0 {
		fmt.Println("No closed polls yet.")
		return nil
	}

	for _, p := range previous {
		line := fmt.Sprintf("%s — %s", p.Title, humanize.Time(p.CreatedAt))
		winner, err := polls.PollWinner(ctx, p.ID)
		if err != nil {
			logger.Warn("winner lookup failed", "poll_id", p.ID, "error", err)
		} else if winner != nil {
			line += fmt.Sprintf(" (watched: %s)", winner.Title)
		}
		fmt.Println(line)
	}
	return nil
}

// cmdPlay runs an interactive swipe session: start or join a poll, answer
// y/n per movie, and settle on a winner when the household matches.
func cmdPlay(ctx context.Context, cfg cliparse.Config, logger *slog.Logger, offline bool) error {
	ctrl, closeStore, err := newController(cfg, logger, offline)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := ctrl.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}

	if ctrl.State() == session.StateIdle {
		if len(cfg.Args) == 0 {
			return fmt.Errorf("no active poll; pass movie ids to start one")
		}
		candidates := lookupCandidates(ctx, cfg, logger)
		outcome, err := ctrl.StartPoll(ctx, "Movie Night", candidates)
		if err != nil {
			return fmt.Errorf("start poll: %w", err)
		}
		fmt.Printf("Started poll (%s) with %d movies.\n", outcome, len(candidates))
	} else {
		fmt.Printf("Joined poll %q, %d left to swipe.\n", ctrl.Poll().Title, len(ctrl.Stack()))
	}

	return swipeLoop(ctx, ctrl)
}

// lookupCandidates resolves the command arguments against the movie
// catalog. A failed lookup still yields a candidate, just without details.
func lookupCandidates(ctx context.Context, cfg cliparse.Config, logger *slog.Logger) []models.Movie {
	cat := catalog.New(cfg.CatalogURL, cfg.CatalogKey, catalog.WithLogger(logger))
	candidates := make([]models.Movie, 0, len(cfg.Args))
	for _, id := range cfg.Args {
		movie, err := cat.Movie(ctx, id)
		if err != nil {
			logger.Warn("catalog lookup failed", "external_id", id, "error", err)
			movie = models.Movie{ExternalID: id, Title: id}
		}
		candidates = append(candidates, movie)
	}
	return candidates
}

func swipeLoop(ctx context.Context, ctrl *session.Controller) error {
	in := bufio.NewScanner(os.Stdin)

	for {
		if err := ctx.Err(); err != nil {
			ctrl.ClosePoll(context.Background())
			return nil
		}

		switch ctrl.State() {
		case session.StateMatchPending:
			fmt.Printf("It's a match: %s\n", strings.Join(ctrl.Matches(), ", "))
			fmt.Print("Lock it in? [y to finish, n to keep swiping] ")
			if readYes(in) {
				summary, err := ctrl.EndPoll(ctx)
				if err != nil {
					return fmt.Errorf("end poll: %w", err)
				}
				printSummary(summary)
				return nil
			}
			ctrl.ContinuePoll()

		case session.StateInPoll:
			stack := ctrl.Stack()
			if len(stack) == 0 {
				fmt.Println("Nothing left to swipe; waiting on the rest of the household.")
				ctrl.ClosePoll(context.Background())
				return nil
			}
			movie := stack[0]
			fmt.Printf("%s (%d) — watch it? [y/n] ", movie.Title, movie.Year)
			ctrl.Vote(ctx, movie.ExternalID, readYes(in))

		default:
			return nil
		}
	}
}

func readYes(in *bufio.Scanner) bool {
	if !in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(in.Text()))
	return answer == "y" || answer == "yes"
}

func printSummary(summary *models.PollSummary) {
	fmt.Printf("Tonight's pick: %s\n", summary.Winner.Title)
	fmt.Printf("%d votes from %d household members.\n", summary.TotalVotes, summary.Participants)
}
