package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"bingetracker/models"
)

const defaultBaseURL = "https://api.themoviedb.org/3"

var (
	ErrAPIKeyMissing = errors.New("catalog api key not configured")
	ErrRequestFailed = errors.New("catalog request failed")
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIKey      string
	BaseURL     string
	Language    string
	Timeout     time.Duration
	MaxAttempts int
	HTTPClient  *http.Client
}

// Client talks to the TMDB v3 REST API.
type Client struct {
	apiKey      string
	baseURL     string
	language    string
	maxAttempts uint
	httpc       *http.Client

	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// NewClient builds a catalog client.
func NewClient(opts Options) *Client {
	httpc := opts.HTTPClient
	if httpc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     base,
		language:    strings.TrimSpace(opts.Language),
		maxAttempts: uint(attempts),
		httpc:       httpc,
		minInterval: 20 * time.Millisecond,
	}
}

// UpdateAPIKey swaps the key used for subsequent requests.
func (c *Client) UpdateAPIKey(apiKey string) {
	c.throttleMu.Lock()
	c.apiKey = strings.TrimSpace(apiKey)
	c.throttleMu.Unlock()
}

func (c *Client) key() string {
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()
	return c.apiKey
}

// statusError carries a non-2xx response status.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return "status " + e.status }

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	// transport errors (timeouts, resets) are worth another attempt
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// doGET issues a throttled GET and decodes the JSON body into v. 429 and 5xx
// responses are retried with exponential backoff.
func (c *Client) doGET(ctx context.Context, endpoint string, query url.Values, v any) error {
	apiKey := c.key()
	if apiKey == "" {
		return ErrAPIKeyMissing
	}

	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return fmt.Errorf("build catalog url: %w", err)
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", apiKey)
	if c.language != "" {
		query.Set("language", c.language)
	}
	u.RawQuery = query.Encode()

	err = retry.Do(
		func() error {
			c.throttleMu.Lock()
			if since := time.Since(c.lastRequest); since < c.minInterval {
				time.Sleep(c.minInterval - since)
			}
			c.lastRequest = time.Now()
			c.throttleMu.Unlock()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return &statusError{code: resp.StatusCode, status: resp.Status}
			}
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[catalog] GET %s failed (attempt %d/%d): %v", endpoint, n+1, c.maxAttempts, err)
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRequestFailed, endpoint, err)
	}
	return nil
}

type tmdbPagedResponse struct {
	Page    int               `json:"page"`
	Results []json.RawMessage `json:"results"`
}

type tmdbMovie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	PosterPath  *string  `json:"poster_path"`
	Overview    string   `json:"overview"`
	ReleaseDate *string  `json:"release_date"`
	VoteAverage *float64 `json:"vote_average"`
}

type tmdbShow struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	PosterPath   *string  `json:"poster_path"`
	Overview     string   `json:"overview"`
	FirstAirDate *string  `json:"first_air_date"`
	VoteAverage  *float64 `json:"vote_average"`
}

type tmdbShowDetails struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Seasons []struct {
		SeasonNumber int `json:"season_number"`
		EpisodeCount int `json:"episode_count"`
	} `json:"seasons"`
}

type tmdbSeason struct {
	SeasonNumber int `json:"season_number"`
	Episodes     []struct {
		EpisodeNumber int    `json:"episode_number"`
		SeasonNumber  int    `json:"season_number"`
		Name          string `json:"name"`
	} `json:"episodes"`
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func (m tmdbMovie) toModel() models.Movie {
	return models.Movie{
		ID:          m.ID,
		Title:       m.Title,
		PosterPath:  nonEmpty(m.PosterPath),
		Overview:    m.Overview,
		ReleaseDate: nonEmpty(m.ReleaseDate),
		Rating:      m.VoteAverage,
	}
}

func (s tmdbShow) toModel() models.TVShow {
	return models.TVShow{
		ID:              s.ID,
		Title:           s.Name,
		PosterPath:      nonEmpty(s.PosterPath),
		Overview:        s.Overview,
		ReleaseDate:     nonEmpty(s.FirstAirDate),
		WatchedEpisodes: models.NewEpisodeSet(),
		Rating:          s.VoteAverage,
	}
}

func pageQuery(page int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

func decodeResults[T any](raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			log.Printf("[catalog] skipping malformed result: %v", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

func (c *Client) movies(ctx context.Context, endpoint string, q url.Values) ([]models.Movie, error) {
	var resp tmdbPagedResponse
	if err := c.doGET(ctx, endpoint, q, &resp); err != nil {
		return nil, err
	}
	results := decodeResults[tmdbMovie](resp.Results)
	out := make([]models.Movie, 0, len(results))
	for _, m := range results {
		out = append(out, m.toModel())
	}
	return out, nil
}

func (c *Client) shows(ctx context.Context, endpoint string, q url.Values) ([]models.TVShow, error) {
	var resp tmdbPagedResponse
	if err := c.doGET(ctx, endpoint, q, &resp); err != nil {
		return nil, err
	}
	results := decodeResults[tmdbShow](resp.Results)
	out := make([]models.TVShow, 0, len(results))
	for _, s := range results {
		out = append(out, s.toModel())
	}
	return out, nil
}

// PopularMovies returns one page of popular movies. page <= 0 means the first.
func (c *Client) PopularMovies(ctx context.Context, page int) ([]models.Movie, error) {
	return c.movies(ctx, "/movie/popular", pageQuery(page))
}

// PopularShows returns one page of popular TV shows.
func (c *Client) PopularShows(ctx context.Context, page int) ([]models.TVShow, error) {
	return c.shows(ctx, "/tv/popular", pageQuery(page))
}

func (c *Client) SearchMovies(ctx context.Context, query string, page int) ([]models.Movie, error) {
	q := pageQuery(page)
	q.Set("query", query)
	return c.movies(ctx, "/search/movie", q)
}

func (c *Client) SearchShows(ctx context.Context, query string, page int) ([]models.TVShow, error) {
	q := pageQuery(page)
	q.Set("query", query)
	return c.shows(ctx, "/search/tv", q)
}

// ShowDetails fetches a show's season list.
func (c *Client) ShowDetails(ctx context.Context, showID int) (models.ShowDetails, error) {
	var resp tmdbShowDetails
	if err := c.doGET(ctx, "/tv/"+strconv.Itoa(showID), nil, &resp); err != nil {
		return models.ShowDetails{}, err
	}
	details := models.ShowDetails{ID: resp.ID, Name: resp.Name, Seasons: make([]models.SeasonSummary, 0, len(resp.Seasons))}
	for _, s := range resp.Seasons {
		details.Seasons = append(details.Seasons, models.SeasonSummary{SeasonNumber: s.SeasonNumber, EpisodeCount: s.EpisodeCount})
	}
	return details, nil
}

// Season fetches the ordered episode list of one season.
func (c *Client) Season(ctx context.Context, showID, seasonNumber int) (models.SeasonDetails, error) {
	var resp tmdbSeason
	endpoint := fmt.Sprintf("/tv/%d/season/%d", showID, seasonNumber)
	if err := c.doGET(ctx, endpoint, nil, &resp); err != nil {
		return models.SeasonDetails{}, err
	}
	season := models.SeasonDetails{SeasonNumber: seasonNumber, Episodes: make([]models.Episode, 0, len(resp.Episodes))}
	for _, e := range resp.Episodes {
		sn := e.SeasonNumber
		if sn == 0 {
			sn = seasonNumber
		}
		season.Episodes = append(season.Episodes, models.Episode{EpisodeNumber: e.EpisodeNumber, SeasonNumber: sn, Title: e.Name})
	}
	return season, nil
}
