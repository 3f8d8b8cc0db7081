package tmdb

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewClient(ClientConfig{
		BaseURL:      server.URL,
		ImageBaseURL: "https://image.example/t/p/original",
		APIKey:       "secret",
		Logger:       logger,
	})
}

func TestSearch_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "the dark knight", r.URL.Query().Get("query"))
		assert.Contains(t, r.URL.RawQuery, "query=the+dark+knight")
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"page":1,"results":[
			{"id":155,"original_title":"The Dark Knight","release_date":"2008-07-16","overview":"..."},
			{"id":49026,"original_title":"The Dark Knight Rises","release_date":"2012-07-16"}
		],"total_pages":1,"total_results":2}`)
	})

	results, err := client.Search(context.Background(), "the dark knight")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{ID: 155, OriginalTitle: "The Dark Knight", ReleaseDate: "2008-07-16"}, results[0])
	assert.Equal(t, int64(49026), results[1].ID)
}

func TestSearch_EmptyQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Search(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSearch_UpstreamError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"status_code":7,"status_message":"Invalid API key"}`)
	})

	_, err := client.Search(context.Background(), "Inception")
	require.Error(t, err)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusUnauthorized, upErr.StatusCode)
	assert.Equal(t, endpointSearch, upErr.Endpoint)
	assert.Contains(t, upErr.Error(), "Invalid API key")
	assert.Equal(t, int32(1), calls.Load(), "failed requests must not be retried")
}

func TestFetchDetails_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/27205", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		io.WriteString(w, `{"id":27205,"original_title":"Inception","overview":"A thief who steals secrets.","release_date":"2010-07-15","poster_path":"/poster.jpg"}`)
	})

	details, err := client.FetchDetails(context.Background(), 27205)
	require.NoError(t, err)
	assert.Equal(t, "Inception", details.Title)
	assert.Equal(t, "A thief who steals secrets.", details.Overview)
	assert.Equal(t, 2010, details.ReleaseYear)
	assert.Equal(t, "https://image.example/t/p/original/poster.jpg", details.PosterURL)
	assert.Equal(t, int64(27205), details.ExternalID)
}

func TestFetchDetails_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no title", `{"id":1,"overview":"x","release_date":"2010-07-15","poster_path":"/p.jpg"}`},
		{"no release date", `{"id":1,"original_title":"X","overview":"x","poster_path":"/p.jpg"}`},
		{"bad release date", `{"id":1,"original_title":"X","release_date":"soon","poster_path":"/p.jpg"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})

			_, err := client.FetchDetails(context.Background(), 1)
			assert.ErrorIs(t, err, ErrMalformedDetails)
		})
	}
}

func TestFetchDetails_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchDetails(context.Background(), 999999999)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusNotFound, upErr.StatusCode)
	assert.False(t, upErr.Temporary())
}

func TestCircuitBreaker_OpensAfterServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < breakerMaxFailures; i++ {
		_, err := client.Search(context.Background(), "Inception")
		var upErr *UpstreamError
		require.ErrorAs(t, err, &upErr)
	}

	_, err := client.Search(context.Background(), "Inception")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(breakerMaxFailures), calls.Load())
}

func TestCircuitBreaker_IgnoresClientErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < breakerMaxFailures+2; i++ {
		_, err := client.FetchDetails(context.Background(), 1)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
}

func TestParseReleaseYear(t *testing.T) {
	year, err := ParseReleaseYear("1999-03-31")
	require.NoError(t, err)
	assert.Equal(t, 1999, year)

	_, err = ParseReleaseYear("")
	assert.Error(t, err)

	_, err = ParseReleaseYear("19x9-01-01")
	assert.Error(t, err)
}

func TestFetchDetails_TransportErrorHidesAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	client := NewClient(ClientConfig{
		BaseURL: baseURL,
		APIKey:  "super-secret-key",
		Logger:  logger,
	})

	_, err := client.FetchDetails(context.Background(), 27205)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret-key")
	assert.Contains(t, err.Error(), "api_key=REDACTED")
	assert.NotEmpty(t, buf.String())
	assert.NotContains(t, buf.String(), "super-secret-key")
}
