// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nestzone/nestwatch/identity"
	"github.com/nestzone/nestwatch/models"
	"github.com/nestzone/nestwatch/record"
)

// cascade names a child collection whose records reference a parent via a
// foreign-key field and die with it.
type cascade struct {
	collection string
	field      string
}

// Store implements record.Store over database/sql, for local-only play and
// for tests. Records are JSON documents; list filters are evaluated
// in-process with record.ParseFilter.
type Store struct {
	db       *sql.DB
	logger   *slog.Logger
	cascades map[string][]cascade
}

// Open connects to the database, verifies the connection, and ensures the
// schema. driver is "sqlite" or "postgres".
func Open(driver, dsn string) (*Store, error) {
	name, err := driverName(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if name == "sqlite" {
		// One connection: in-memory sqlite databases are per-connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle and ensures the schema.
func New(db *sql.DB) (*Store, error) {
	if err := CreateSchema(db); err != nil {
		return nil, err
	}
	return &Store{
		db:     db,
		logger: slog.Default(),
		cascades: map[string][]cascade{
			models.CollectionPolls: {
				{collection: models.CollectionPollItems, field: "poll_id"},
				{collection: models.CollectionVotes, field: "poll_id"},
			},
		},
	}, nil
}

func driverName(driver string) (string, error) {
	switch driver {
	case "sqlite", "":
		return "sqlite", nil
	case "postgres":
		return "postgres", nil
	}
	return "", fmt.Errorf("unsupported database type %q (sqlite or postgres)", driver)
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// List returns records of the collection matching the filter, sorted and
// truncated per the options. TotalItems counts matches before truncation.
func (s *Store) List(ctx context.Context, collection string, opts record.ListOptions) (record.ListResult, error) {
	var filter *record.Filter
	if opts.Filter != "" {
		var err error
		filter, err = record.ParseFilter(opts.Filter)
		if err != nil {
			return record.ListResult{}, record.NewError(record.KindBadRequest, collection, "invalid filter", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM record WHERE collection = $1 ORDER BY created, id
	`, collection)
	if err != nil {
		return record.ListResult{}, record.NewError(record.KindServerError, collection, "query failed", err)
	}
	defer rows.Close()

	items := []record.Record{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return record.ListResult{}, record.NewError(record.KindServerError, collection, "scan failed", err)
		}
		var rec record.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return record.ListResult{}, record.NewError(record.KindServerError, collection, "corrupt record", err)
		}
		if filter == nil || filter.Match(rec) {
			items = append(items, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return record.ListResult{}, record.NewError(record.KindServerError, collection, "row iteration failed", err)
	}

	if opts.Sort != "" {
		applySort(items, opts.Sort)
	}

	total := len(items)
	if opts.PerPage > 0 && len(items) > opts.PerPage {
		items = items[:opts.PerPage]
	}
	return record.ListResult{Items: items, TotalItems: total}, nil
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, collection, id string) (record.Record, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM record WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, record.NewError(record.KindNotFound, collection, id, nil)
	}
	if err != nil {
		return nil, record.NewError(record.KindServerError, collection, "query failed", err)
	}

	var rec record.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, record.NewError(record.KindServerError, collection, "corrupt record", err)
	}
	return rec, nil
}

// Create stores a new record, minting an id and timestamps when absent.
func (s *Store) Create(ctx context.Context, collection string, fields record.Record) (record.Record, error) {
	rec := make(record.Record, len(fields)+4)
	for k, v := range fields {
		rec[k] = v
	}

	if rec.ID() == "" {
		id, err := identity.NewRecordID()
		if err != nil {
			return nil, record.NewError(record.KindServerError, collection, "mint id", err)
		}
		rec["id"] = id
	}
	now := record.FormatTime(time.Now())
	if rec.GetString("created") == "" {
		rec["created"] = now
	}
	rec["updated"] = now
	rec["collectionName"] = collection

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, record.NewError(record.KindBadRequest, collection, "encode record", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO record (collection, id, data, created)
		VALUES ($1, $2, $3, $4)
	`, collection, rec.ID(), string(raw), rec.GetString("created"))
	if err != nil {
		return nil, record.NewError(record.KindBadRequest, collection, "insert failed", err)
	}
	return rec, nil
}

// Update merges fields into an existing record.
func (s *Store) Update(ctx context.Context, collection, id string, fields record.Record) (record.Record, error) {
	rec, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		if k == "id" || k == "collectionName" || k == "created" {
			continue
		}
		rec[k] = v
	}
	rec["updated"] = record.FormatTime(time.Now())

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, record.NewError(record.KindBadRequest, collection, "encode record", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE record SET data = $1 WHERE collection = $2 AND id = $3
	`, string(raw), collection, id)
	if err != nil {
		return nil, record.NewError(record.KindServerError, collection, "update failed", err)
	}
	return rec, nil
}

// Delete removes a record and everything cascading from it.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM record WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		return record.NewError(record.KindServerError, collection, "delete failed", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return record.NewError(record.KindNotFound, collection, id, nil)
	}

	for _, c := range s.cascades[collection] {
		if err := s.deleteWhere(ctx, c.collection, c.field, id); err != nil {
			return err
		}
	}
	return nil
}

// deleteWhere removes every record of the collection whose field equals
// value. Filtering happens in Go; the candidate set is one collection.
func (s *Store) deleteWhere(ctx context.Context, collection, field, value string) error {
	res, err := s.List(ctx, collection, record.ListOptions{Filter: record.Equal(field, value)})
	if err != nil {
		return err
	}
	for _, rec := range res.Items {
		_, err := s.db.ExecContext(ctx, `
			DELETE FROM record WHERE collection = $1 AND id = $2
		`, collection, rec.ID())
		if err != nil {
			return record.NewError(record.KindServerError, collection, "cascade delete failed", err)
		}
	}
	if len(res.Items) > 0 {
		s.logger.Debug("cascade delete", "collection", collection, "field", field, "count", len(res.Items))
	}
	return nil
}

// applySort orders items by a comma-separated field list; a leading '-'
// sorts that field descending. Numeric fields compare numerically,
// everything else as strings.
func applySort(items []record.Record, sortSpec string) {
	type key struct {
		field string
		desc  bool
	}
	var keys []key
	for _, f := range strings.Split(sortSpec, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		k := key{field: f}
		if strings.HasPrefix(f, "-") {
			k = key{field: f[1:], desc: true}
		}
		keys = append(keys, k)
	}

	sort.SliceStable(items, func(i, j int) bool {
		for _, k := range keys {
			cmp := compareField(items[i], items[j], k.field)
			if cmp == 0 {
				continue
			}
			if k.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareField(a, b record.Record, field string) int {
	av, aNum := a[field].(float64)
	bv, bNum := b[field].(float64)
	if aNum && bNum {
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	return strings.Compare(a.GetString(field), b.GetString(field))
}
