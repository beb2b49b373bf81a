package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"bingetracker/services/catalog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *catalog.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return catalog.NewClient(catalog.Options{APIKey: "k", BaseURL: srv.URL, MaxAttempts: 3})
}

func TestPopularMoviesMapsFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/popular" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "k" || r.URL.Query().Get("page") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"page":2,"results":[{"id":5,"title":"Heat","poster_path":"/h.jpg","overview":"LA","release_date":"1995-12-15","vote_average":8.3}]}`))
	})

	movies, err := client.PopularMovies(context.Background(), 2)
	if err != nil {
		t.Fatalf("PopularMovies: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("expected 1 movie, got %d", len(movies))
	}
	m := movies[0]
	if m.ID != 5 || m.Title != "Heat" || *m.PosterPath != "/h.jpg" || *m.ReleaseDate != "1995-12-15" || *m.Rating != 8.3 || m.Watched {
		t.Fatalf("unexpected movie %+v", m)
	}
}

func TestSearchShowsMapsNameAndAirDate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/tv" || r.URL.Query().Get("query") != "dark" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Write([]byte(`{"results":[{"id":7,"name":"Dark","first_air_date":"2017-12-01","poster_path":null,"vote_average":8.7}]}`))
	})

	shows, err := client.SearchShows(context.Background(), "dark", 0)
	if err != nil {
		t.Fatalf("SearchShows: %v", err)
	}
	if len(shows) != 1 || shows[0].Title != "Dark" || *shows[0].ReleaseDate != "2017-12-01" || shows[0].PosterPath != nil {
		t.Fatalf("unexpected shows %+v", shows)
	}
}

func TestShowDetailsAndSeason(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tv/7":
			w.Write([]byte(`{"id":7,"name":"Dark","seasons":[{"season_number":0,"episode_count":3},{"season_number":1,"episode_count":2}]}`))
		case "/tv/7/season/1":
			w.Write([]byte(`{"season_number":1,"episodes":[{"episode_number":1,"season_number":1,"name":"Secrets"},{"episode_number":2,"season_number":1,"name":"Lies"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	details, err := client.ShowDetails(context.Background(), 7)
	if err != nil {
		t.Fatalf("ShowDetails: %v", err)
	}
	if len(details.Seasons) != 2 || details.Seasons[1].EpisodeCount != 2 {
		t.Fatalf("unexpected details %+v", details)
	}

	season, err := client.Season(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("Season: %v", err)
	}
	if len(season.Episodes) != 2 || season.Episodes[1].Title != "Lies" {
		t.Fatalf("unexpected season %+v", season)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	})

	if _, err := client.PopularShows(context.Background(), 1); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.PopularMovies(context.Background(), 1)
	if !errors.Is(err, catalog.ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestMissingAPIKey(t *testing.T) {
	client := catalog.NewClient(catalog.Options{BaseURL: "http://127.0.0.1:0"})
	if _, err := client.PopularMovies(context.Background(), 1); !errors.Is(err, catalog.ErrAPIKeyMissing) {
		t.Fatalf("expected ErrAPIKeyMissing, got %v", err)
	}
}
