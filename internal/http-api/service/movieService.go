package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"topmovies/internal/http-api/dto"
	"topmovies/internal/http-api/models"
	"topmovies/internal/http-api/repository"
	"topmovies/internal/ingestion/tmdb"
	"topmovies/internal/metrics"

	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyQuery = errors.New("search title is required")
	ErrUpstream   = errors.New("movie database request failed")
	ErrBadRating  = errors.New("rating out of range")
)

// MovieSearcher is the slice of the TMDB client the service depends on
type MovieSearcher interface {
	Search(ctx context.Context, query string) ([]tmdb.SearchResult, error)
	FetchDetails(ctx context.Context, externalID int64) (*tmdb.MovieDetails, error)
}

type MovieService interface {
	ListRanked(ctx context.Context) []models.Movie
	Search(ctx context.Context, title string) ([]tmdb.SearchResult, error)
	AddFromExternal(ctx context.Context, externalID int64) (*models.Movie, error)
	Get(ctx context.Context, id int64) (*models.Movie, error)
	Rate(ctx context.Context, id int64, rating float64, review string) (*models.Movie, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

type movieService struct {
	repo     repository.MovieRepository
	searcher MovieSearcher
	logger   *logrus.Logger
}

func NewMovieService(repo repository.MovieRepository, searcher MovieSearcher, logger *logrus.Logger) MovieService {
	return &movieService{
		repo:     repo,
		searcher: searcher,
		logger:   logger,
	}
}

// ListRanked recomputes every movie's ranking from its rating, persists the
// new rankings and returns the movies in ascending rating order.
// Reading the list writes to the database. Any storage failure is logged and
// yields an empty list.
func (s *movieService) ListRanked(ctx context.Context) []models.Movie {
	movies, err := s.repo.ListByRating(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list movies, showing an empty list")
		metrics.RecordRanking(0, err)
		return []models.Movie{}
	}

	RankMovies(movies)

	if err := s.repo.SaveRankings(ctx, movies); err != nil {
		s.logger.WithError(err).Error("Failed to save rankings, showing an empty list")
		metrics.RecordRanking(0, err)
		return []models.Movie{}
	}

	metrics.RecordRanking(len(movies), nil)
	return movies
}

// Search asks the movie database for candidates matching title
func (s *movieService) Search(ctx context.Context, title string) ([]tmdb.SearchResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyQuery
	}

	results, err := s.searcher.Search(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return results, nil
}

// AddFromExternal fetches a movie's details and stores it with placeholder rating and review
func (s *movieService) AddFromExternal(ctx context.Context, externalID int64) (*models.Movie, error) {
	details, err := s.searcher.FetchDetails(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	movie := &models.Movie{
		Title:       details.Title,
		Year:        details.ReleaseYear,
		Description: details.Overview,
		Rating:      0,
		Ranking:     0,
		Review:      models.PlaceholderReview,
		ImgURL:      details.PosterURL,
	}
	if err := s.repo.Create(ctx, movie); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"movie_id":    movie.ID,
		"external_id": externalID,
		"title":       movie.Title,
	}).Info("Movie added")

	return movie, nil
}

func (s *movieService) Get(ctx context.Context, id int64) (*models.Movie, error) {
	return s.repo.GetByID(ctx, id)
}

// Rate replaces a movie's rating and review. Input is validated by the form
// binding; the range is checked again so a bad value never reaches storage.
func (s *movieService) Rate(ctx context.Context, id int64, rating float64, review string) (*models.Movie, error) {
	if rating < dto.MinRating || rating > dto.MaxRating {
		return nil, fmt.Errorf("%w: %g", ErrBadRating, rating)
	}

	movie, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	movie.Rating = rating
	movie.Review = review
	if err := s.repo.Update(ctx, movie); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"movie_id": id,
		"rating":   rating,
	}).Info("Movie rated")

	return movie, nil
}

func (s *movieService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("movie_id", id).Info("Movie deleted")
	return nil
}

func (s *movieService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
