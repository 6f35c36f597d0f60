// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package record

import (
	"context"
	"time"
)

// Timestamp layouts used by the backing store. Created/updated fields are
// string-encoded so that filter comparisons stay lexicographic.
const (
	TimeLayout     = "2006-01-02 15:04:05.000Z"
	timeLayoutBare = "2006-01-02 15:04:05"
)

// Record is one store document: an id, optional collection metadata, and a
// flat field map decoded from JSON.
type Record map[string]any

// ID returns the record's id field, if any.
func (r Record) ID() string { return r.GetString("id") }

// Collection returns the collection name the store attached to the record,
// or "" when the metadata is absent.
func (r Record) Collection() string { return r.GetString("collectionName") }

// Has reports whether the field is present at all.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// GetString returns the field as a string, or "" for missing/non-string values.
func (r Record) GetString(field string) string {
	s, _ := r[field].(string)
	return s
}

// GetBool returns the field as a bool, or false when missing.
func (r Record) GetBool(field string) bool {
	b, _ := r[field].(bool)
	return b
}

// GetFloat returns the field as a float64. JSON numbers decode as float64.
func (r Record) GetFloat(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// GetInt returns the field as an int.
func (r Record) GetInt(field string) int { return int(r.GetFloat(field)) }

// GetStrings returns the field as a string slice. JSON arrays decode as
// []any; non-string elements are skipped.
func (r Record) GetStrings(field string) []string {
	switch v := r[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// GetTime parses the field as a store timestamp. Zero time on failure.
func (r Record) GetTime(field string) time.Time {
	s := r.GetString(field)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{TimeLayout, timeLayoutBare, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatTime renders t in the store's timestamp encoding.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// ListOptions narrows a List call. Filter uses the store's small boolean
// expression language (see ParseFilter); Sort is a comma-separated field
// list with an optional leading '-' for descending.
type ListOptions struct {
	Filter  string
	Sort    string
	PerPage int
}

// ListResult is one page of records plus the total across all pages.
type ListResult struct {
	Items      []Record `json:"items"`
	TotalItems int      `json:"totalItems"`
}

// Store is the generic remote-collection contract everything persists
// through. All operations may fail with a *StoreError carrying one of the
// taxonomy kinds.
type Store interface {
	List(ctx context.Context, collection string, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	Create(ctx context.Context, collection string, fields Record) (Record, error)
	Update(ctx context.Context, collection, id string, fields Record) (Record, error)
	Delete(ctx context.Context, collection, id string) error
}
