// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestMovieLookup(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("api_key")
		fmt.Fprint(w, `{
			"id": 603,
			"title": "The Matrix",
			"overview": "A hacker discovers reality is a simulation.",
			"poster_path": "/poster.jpg",
			"release_date": "1999-03-31",
			"vote_average": 8.2,
			"genres": [{"name": "Action"}, {"name": "Science Fiction"}]
		}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	movie, err := c.Movie(context.Background(), "603")
	if err != nil {
		t.Fatalf("Movie failed: %v", err)
	}

	if gotPath != "/movie/603" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("api_key = %q", gotKey)
	}

	if movie.ExternalID != "603" || movie.Title != "The Matrix" {
		t.Errorf("movie = %+v", movie)
	}
	if movie.Year != 1999 {
		t.Errorf("year = %d", movie.Year)
	}
	if movie.Rating != 8.2 {
		t.Errorf("rating = %v", movie.Rating)
	}
	if movie.PosterURL != srv.URL+"/poster.jpg" {
		t.Errorf("poster = %q", movie.PosterURL)
	}
	if !reflect.DeepEqual(movie.Genres, []string{"Action", "Science Fiction"}) {
		t.Errorf("genres = %v", movie.Genres)
	}
}

func TestMovieLookupPartialResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 42, "title": "Obscure Film"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	movie, err := c.Movie(context.Background(), "42")
	if err != nil {
		t.Fatalf("Movie failed: %v", err)
	}
	if movie.Title != "Obscure Film" || movie.Year != 0 || movie.PosterURL != "" {
		t.Errorf("movie = %+v", movie)
	}
}

func TestMovieLookupErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.Movie(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}
