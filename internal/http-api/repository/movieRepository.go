package repository

import (
	"context"
	"errors"
	"fmt"

	"topmovies/internal/http-api/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrMovieNotFound  = errors.New("movie not found")
	ErrDuplicateTitle = errors.New("movie with this title already exists")
)

const uniqueViolation = "23505"

type MovieRepository interface {
	Create(ctx context.Context, movie *models.Movie) error
	GetByID(ctx context.Context, id int64) (*models.Movie, error)
	ListByRating(ctx context.Context) ([]models.Movie, error)
	Update(ctx context.Context, movie *models.Movie) error
	Delete(ctx context.Context, id int64) error
	SaveRankings(ctx context.Context, movies []models.Movie) error
	Ping(ctx context.Context) error
}

type movieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) MovieRepository {
	return &movieRepository{db: db}
}

// Create inserts a new movie; GORM populates movie.ID
func (r *movieRepository) Create(ctx context.Context, movie *models.Movie) error {
	if err := r.db.WithContext(ctx).Create(movie).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateTitle, movie.Title)
		}
		return fmt.Errorf("create movie: %w", err)
	}
	return nil
}

// GetByID retrieves a movie by its primary key
func (r *movieRepository) GetByID(ctx context.Context, id int64) (*models.Movie, error) {
	var m models.Movie
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	return &m, nil
}

// ListByRating returns every movie ordered by ascending rating, id breaking ties
func (r *movieRepository) ListByRating(ctx context.Context) ([]models.Movie, error) {
	var movies []models.Movie
	if err := r.db.WithContext(ctx).Order("rating asc").Order("id asc").Find(&movies).Error; err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// Update saves all fields of an existing movie
func (r *movieRepository) Update(ctx context.Context, movie *models.Movie) error {
	if err := r.db.WithContext(ctx).Save(movie).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateTitle, movie.Title)
		}
		return fmt.Errorf("update movie %d: %w", movie.ID, err)
	}
	return nil
}

// Delete removes a movie by id
func (r *movieRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Movie{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete movie %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// SaveRankings writes the ranking column of every given movie in one transaction
func (r *movieRepository) SaveRankings(ctx context.Context, movies []models.Movie) error {
	if len(movies) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range movies {
			err := tx.Model(&models.Movie{}).
				Where("id = ?", m.ID).
				Update("ranking", m.Ranking).Error
			if err != nil {
				return fmt.Errorf("save ranking for movie %d: %w", m.ID, err)
			}
		}
		return nil
	})
}

// Ping checks that the database is reachable
func (r *movieRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
