// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package users

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nestzone/nestwatch/identity"
	"github.com/nestzone/nestwatch/models"
	"github.com/nestzone/nestwatch/record"
)

// Resolver resolves user ids to display names with memoization. Ids that
// fail to resolve go into an append-only failed set and degrade to a
// shortened-id placeholder; Retry is the only path that removes an id from
// that set.
type Resolver struct {
	records record.Store
	logger  *slog.Logger

	mu     sync.Mutex
	names  map[string]string
	failed map[string]struct{}
}

func New(records record.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		records: records,
		logger:  logger,
		names:   make(map[string]string),
		failed:  make(map[string]struct{}),
	}
}

// DisplayNames resolves a batch of user ids. Every id gets an entry in the
// result: the stored name, or a placeholder when the lookup failed now or
// ever before.
func (r *Resolver) DisplayNames(ctx context.Context, ids []string) map[string]string {
	out := make(map[string]string, len(ids))

	var unresolved []string
	r.mu.Lock()
	for _, id := range ids {
		if name, ok := r.names[id]; ok {
			out[id] = name
			continue
		}
		if _, ok := r.failed[id]; ok {
			out[id] = identity.ShortID(id)
			continue
		}
		unresolved = append(unresolved, id)
	}
	r.mu.Unlock()

	for _, id := range unresolved {
		name, err := r.lookup(ctx, id)
		r.mu.Lock()
		if err != nil {
			r.failed[id] = struct{}{}
			out[id] = identity.ShortID(id)
			r.mu.Unlock()
			r.logger.Warn("user lookup failed", "user_id", id, "error", err)
			continue
		}
		r.names[id] = name
		out[id] = name
		r.mu.Unlock()
	}
	return out
}

// Retry removes an id from the failed set so the next DisplayNames call
// looks it up again.
func (r *Resolver) Retry(id string) {
	r.mu.Lock()
	delete(r.failed, id)
	r.mu.Unlock()
}

func (r *Resolver) lookup(ctx context.Context, id string) (string, error) {
	rec, err := r.records.Get(ctx, models.CollectionUsers, id)
	if err != nil {
		return "", err
	}
	name := rec.GetString("name")
	if name == "" {
		name = rec.GetString("username")
	}
	if name == "" {
		name = identity.ShortID(id)
	}
	return name, nil
}
