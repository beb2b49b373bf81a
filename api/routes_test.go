package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"bingetracker/handlers"
	"bingetracker/internal/docstore"
	"bingetracker/models"
	"bingetracker/services/accounts"
	"bingetracker/services/binges"
	"bingetracker/services/browse"
	"bingetracker/services/sessions"
	"bingetracker/utils"
)

type noEpisodes struct{}

func (noEpisodes) ShowDetails(context.Context, int) (models.ShowDetails, error) {
	return models.ShowDetails{}, nil
}

func (noEpisodes) Season(context.Context, int, int) (models.SeasonDetails, error) {
	return models.SeasonDetails{}, nil
}

type emptyCatalog struct{}

func (emptyCatalog) PopularMovies(context.Context, int) ([]models.Movie, error) { return nil, nil }
func (emptyCatalog) PopularShows(context.Context, int) ([]models.TVShow, error) { return nil, nil }
func (emptyCatalog) SearchMovies(context.Context, string, int) ([]models.Movie, error) {
	return nil, nil
}
func (emptyCatalog) SearchShows(context.Context, string, int) ([]models.TVShow, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	store, err := docstore.Open(ctx, docstore.Config{Driver: docstore.DriverSQLite, Path: filepath.Join(t.TempDir(), "api.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fs := afero.NewMemMapFs()
	accountsSvc, err := accounts.NewService(fs, "/data")
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	sessionsSvc, err := sessions.NewService(fs, "/data", time.Hour)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	identity := accounts.NewIdentity(accountsSvc, sessionsSvc, store)

	bingeHub := binges.NewHub(store, noEpisodes{}, binges.Collation{})
	browseHub := browse.NewHub(emptyCatalog{})

	r := utils.NewRouter(utils.OriginPolicy{})
	Register(r,
		handlers.NewAuthHandler(identity, bingeHub, browseHub),
		handlers.NewBingesHandler(bingeHub),
		handlers.NewCatalogHandler(browseHub),
		identity,
		nil,
	)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSignUpThenTrackBinge(t *testing.T) {
	srv := newTestServer(t)

	resp := call(t, srv, http.MethodPost, "/api/auth/signup", "", handlers.SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "secret"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", resp.StatusCode)
	}
	var authResp handlers.AuthResponse
	json.NewDecoder(resp.Body).Decode(&authResp)
	token := authResp.Token

	if resp := call(t, srv, http.MethodGet, "/api/binges", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	item := models.ToStored(models.Movie{ID: 42, Title: "Heat"})
	resp = call(t, srv, http.MethodPost, "/api/binges", token, handlers.CreateBingeRequest{Name: "Crime", Item: &item})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)

	resp = call(t, srv, http.MethodPost, "/api/binges/"+created.ID+"/items", token, handlers.AddItemRequest{Item: &item})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate add: expected 409, got %d", resp.StatusCode)
	}

	resp = call(t, srv, http.MethodPut, "/api/binges/"+created.ID+"/movies/42/watched", token, handlers.WatchedRequest{Watched: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", resp.StatusCode)
	}
	var view struct {
		Binges []struct {
			Progress float64 `json:"progress"`
		} `json:"binges"`
	}
	json.NewDecoder(resp.Body).Decode(&view)
	if len(view.Binges) != 1 || view.Binges[0].Progress != 1 {
		t.Fatalf("expected one fully watched binge, got %+v", view.Binges)
	}

	if resp := call(t, srv, http.MethodGet, "/api/auth/me", token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}
	if resp := call(t, srv, http.MethodPost, "/api/auth/logout", token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	if resp := call(t, srv, http.MethodGet, "/api/binges", token, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestSignOutKeepsViewForOtherSessions(t *testing.T) {
	srv := newTestServer(t)

	resp := call(t, srv, http.MethodPost, "/api/auth/signup", "", handlers.SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "secret"})
	var first handlers.AuthResponse
	json.NewDecoder(resp.Body).Decode(&first)

	resp = call(t, srv, http.MethodPost, "/api/auth/login", "", handlers.SignInRequest{Email: "ada@example.com", Password: "secret"})
	var second handlers.AuthResponse
	json.NewDecoder(resp.Body).Decode(&second)
	if first.Token == "" || second.Token == "" || first.Token == second.Token {
		t.Fatalf("expected two distinct sessions, got %q and %q", first.Token, second.Token)
	}

	filter := models.BingeFilterMoviesOnly
	resp = call(t, srv, http.MethodPut, "/api/binges/view", second.Token, handlers.BingeViewRequest{Filter: &filter})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update view: expected 200, got %d", resp.StatusCode)
	}

	if resp := call(t, srv, http.MethodPost, "/api/auth/logout", first.Token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	type viewFilter struct {
		Filter string `json:"filter"`
	}
	resp = call(t, srv, http.MethodGet, "/api/binges", second.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var view viewFilter
	json.NewDecoder(resp.Body).Decode(&view)
	if view.Filter != string(models.BingeFilterMoviesOnly) {
		t.Fatalf("filter after other session logged out: got %q", view.Filter)
	}

	// the last session ending releases the view
	call(t, srv, http.MethodPost, "/api/auth/logout", second.Token, nil)
	resp = call(t, srv, http.MethodPost, "/api/auth/login", "", handlers.SignInRequest{Email: "ada@example.com", Password: "secret"})
	var third handlers.AuthResponse
	json.NewDecoder(resp.Body).Decode(&third)
	resp = call(t, srv, http.MethodGet, "/api/binges", third.Token, nil)
	view = viewFilter{}
	json.NewDecoder(resp.Body).Decode(&view)
	if view.Filter != string(models.BingeFilterAll) {
		t.Fatalf("expected a fresh view after every session ended, got %q", view.Filter)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, http.MethodPost, "/api/auth/signup", "", handlers.SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "secret"})

	resp := call(t, srv, http.MethodPost, "/api/auth/login", "", handlers.SignInRequest{Email: "ada@example.com", Password: "nope"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp = call(t, srv, http.MethodPost, "/api/auth/login", "", handlers.SignInRequest{Email: "ada@example.com", Password: "secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	if resp := call(t, srv, http.MethodGet, "/health", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
