package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"circles-service/internal/models"
)

// MovieRepository reads the local catalog cache.
type MovieRepository interface {
	GetMoviesByIDs(ctx context.Context, ids []int) ([]models.Movie, error)
}

// MovieRepo is a sqlx implementation of MovieRepository.
type MovieRepo struct {
	db *sqlx.DB
}

// NewMovieRepo constructs a MovieRepo.
func NewMovieRepo(db *sqlx.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

func (r *MovieRepo) GetMoviesByIDs(ctx context.Context, ids []int) ([]models.Movie, error) {
	if len(ids) == 0 {
		return []models.Movie{}, nil
	}
	var movies []models.Movie
	err := r.db.SelectContext(ctx, &movies, `SELECT id, title, poster_url FROM movies WHERE id = ANY($1)`, toInt64s(ids))
	return movies, err
}
