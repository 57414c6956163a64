package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vakinola/Studyassist-MVP/internal/models"
)

type ResultRepo struct {
	pool *pgxpool.Pool
}

func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

func (r *ResultRepo) Create(ctx context.Context, res *models.QuizResult) error {
	res.ID = uuid.New()
	res.TakenAt = time.Now()

	query := `INSERT INTO quiz_results (id, filename, correct, total, percent, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, res.ID, res.Filename, res.Correct, res.Total, res.Percent, res.TakenAt)
	return err
}

// List returns results newest first.
func (r *ResultRepo) List(ctx context.Context, limit int) ([]models.QuizResult, error) {
	query := `SELECT id, filename, correct, total, percent, taken_at
		FROM quiz_results ORDER BY taken_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.QuizResult{}
	for rows.Next() {
		var res models.QuizResult
		if err := rows.Scan(&res.ID, &res.Filename, &res.Correct, &res.Total, &res.Percent, &res.TakenAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
