package service

import (
	"sort"

	"topmovies/internal/http-api/models"
)

// RankMovies orders movies by ascending rating and assigns ranking = count - index,
// so the highest rated movie ends up with ranking 1. Movies with equal ratings keep
// their incoming order. The slice is sorted in place and returned.
func RankMovies(movies []models.Movie) []models.Movie {
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].Rating < movies[j].Rating
	})

	n := len(movies)
	for i := range movies {
		movies[i].Ranking = n - i
	}
	return movies
}
