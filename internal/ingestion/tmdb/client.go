package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"topmovies/internal/metrics"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/original"

	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 40
	userAgent        = "TopMovies/1.0"

	// limit response size to prevent memory issues
	maxResponseSize = 5 * 1024 * 1024

	breakerName        = "tmdb-api"
	breakerMaxFailures = 5
	breakerOpenTimeout = 30 * time.Second

	endpointSearch  = "search"
	endpointDetails = "details"
)

// ClientConfig holds the knobs for a TMDB client. Zero values get defaults.
type ClientConfig struct {
	BaseURL      string
	ImageBaseURL string
	APIKey       string
	Timeout      time.Duration
	RateLimit    int
	Logger       *logrus.Logger
	HTTPClient   *http.Client
}

// Client talks to the TMDB v3 API. Failed requests are never retried.
type Client struct {
	baseURL      string
	imageBaseURL string
	apiKey       string
	httpClient   *http.Client
	rateLimiter  *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[[]byte]
	logger       *logrus.Logger
}

// NewClient creates a new TMDB API client
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.ImageBaseURL == "" {
		config.ImageBaseURL = DefaultImageBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaultRateLimit
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	c := &Client{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		imageBaseURL: config.ImageBaseURL,
		apiKey:       config.APIKey,
		httpClient:   config.HTTPClient,
		rateLimiter:  rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit),
		logger:       config.Logger,
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    breakerName,
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		// client-side rejections (bad key, unknown id) say nothing about upstream health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var upErr *UpstreamError
			if errors.As(err, &upErr) {
				return !upErr.Temporary()
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return c
}

// Search looks up movies by title. The query is form-encoded, so spaces travel as '+'.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	c.logger.WithField("query", query).Info("Searching movies...")

	params := url.Values{}
	params.Set("query", query)

	body, err := c.doRequest(ctx, endpointSearch, "/search/movie", params)
	if err != nil {
		return nil, fmt.Errorf("failed to search movies: %w", err)
	}

	var response SearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return response.Results, nil
}

// FetchDetails loads one movie by its TMDB id
func (c *Client) FetchDetails(ctx context.Context, externalID int64) (*MovieDetails, error) {
	endpoint := "/movie/" + strconv.FormatInt(externalID, 10)

	body, err := c.doRequest(ctx, endpointDetails, endpoint, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movie %d: %w", externalID, err)
	}

	var response detailsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse movie %d: %w", externalID, err)
	}

	return c.extractDetails(externalID, &response)
}

func (c *Client) extractDetails(externalID int64, r *detailsResponse) (*MovieDetails, error) {
	if r.OriginalTitle == "" {
		return nil, fmt.Errorf("%w: movie %d has no original_title", ErrMalformedDetails, externalID)
	}

	year, err := ParseReleaseYear(r.ReleaseDate)
	if err != nil {
		return nil, fmt.Errorf("%w: movie %d: %v", ErrMalformedDetails, externalID, err)
	}

	return &MovieDetails{
		ExternalID:  externalID,
		Title:       r.OriginalTitle,
		Overview:    r.Overview,
		ReleaseYear: year,
		PosterURL:   c.imageBaseURL + r.PosterPath,
	}, nil
}

// ParseReleaseYear takes the year out of a YYYY-MM-DD date
func ParseReleaseYear(date string) (int, error) {
	if len(date) < 4 {
		return 0, fmt.Errorf("invalid release_date %q", date)
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, fmt.Errorf("invalid release_date %q", date)
	}
	return year, nil
}

// doRequest performs a rate-limited GET through the circuit breaker and returns the body
func (c *Client) doRequest(ctx context.Context, name, endpoint string, params url.Values) ([]byte, error) {
	params.Set("api_key", c.apiKey)
	fullURL := c.baseURL + endpoint + "?" + params.Encode()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, name, fullURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return body, err
}

func (c *Client) get(ctx context.Context, name, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = redactURLError(err)
		metrics.RecordUpstreamRequest(name, 0, time.Since(start))
		c.logger.WithError(err).WithField("endpoint", name).Warn("TMDB request failed")
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	metrics.RecordUpstreamRequest(name, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.WithFields(logrus.Fields{
			"endpoint": name,
			"status":   resp.StatusCode,
		}).Warn("TMDB returned an error status")
		return nil, &UpstreamError{
			Endpoint:   name,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if resp.ContentLength > maxResponseSize {
		return nil, fmt.Errorf("response too large: %d bytes", resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("response too large: exceeded %d bytes", maxResponseSize)
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint":      name,
		"status":        resp.StatusCode,
		"response_size": len(body),
	}).Debug("TMDB request successful")

	return body, nil
}

// redactURLError drops the api_key from the URL that net/http puts in transport errors
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	u, parseErr := url.Parse(urlErr.URL)
	if parseErr != nil {
		urlErr.URL = "<redacted>"
		return err
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	urlErr.URL = u.String()
	return err
}
