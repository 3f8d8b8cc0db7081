package tmdb

import (
	"errors"
	"fmt"
)

// ============================================
// API RESPONSE STRUCTURES
// ============================================

// SearchResponse represents the response from GET /search/movie
type SearchResponse struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// SearchResult is one candidate returned by a title search
type SearchResult struct {
	ID            int64  `json:"id"`
	OriginalTitle string `json:"original_title"`
	ReleaseDate   string `json:"release_date"`
}

// detailsResponse represents the response from GET /movie/{id}
type detailsResponse struct {
	ID            int64  `json:"id"`
	OriginalTitle string `json:"original_title"`
	Overview      string `json:"overview"`
	ReleaseDate   string `json:"release_date"`
	PosterPath    string `json:"poster_path"`
}

// ============================================
// EXTRACTED METADATA
// ============================================

// MovieDetails is the subset of a movie record needed to start tracking it
type MovieDetails struct {
	ExternalID  int64
	Title       string
	Overview    string
	ReleaseYear int
	PosterURL   string
}

// ============================================
// ERRORS
// ============================================

var (
	// ErrMalformedDetails means a detail response lacked a field the tracker needs
	ErrMalformedDetails = errors.New("malformed movie details")
	// ErrCircuitOpen means recent upstream failures tripped the breaker
	ErrCircuitOpen = errors.New("movie database temporarily unavailable")
)

// UpstreamError is returned when the movie database answers with a non-2xx status
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tmdb %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("tmdb %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Temporary reports whether the status points at an upstream-side fault
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
