package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vakinola/Studyassist-MVP/internal/models"
)

type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

// Create registers an accepted upload. Re-uploading the same filename
// replaces the stored path and clears any previous summary.
func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	d.ID = uuid.New()
	d.UploadedAt = time.Now()

	query := `INSERT INTO documents (id, filename, stored_path, uploaded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (filename) DO UPDATE
		SET stored_path = EXCLUDED.stored_path, summary = NULL, uploaded_at = EXCLUDED.uploaded_at
		RETURNING id`

	return r.pool.QueryRow(ctx, query, d.ID, d.Filename, d.StoredPath, d.UploadedAt).Scan(&d.ID)
}

func (r *DocumentRepo) GetByFilename(ctx context.Context, filename string) (*models.Document, error) {
	d := &models.Document{}
	query := `SELECT id, filename, stored_path, summary, uploaded_at FROM documents WHERE filename = $1`

	err := r.pool.QueryRow(ctx, query, filename).Scan(
		&d.ID, &d.Filename, &d.StoredPath, &d.Summary, &d.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepo) List(ctx context.Context) ([]models.Document, error) {
	query := `SELECT id, filename, stored_path, summary, uploaded_at FROM documents ORDER BY uploaded_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.StoredPath, &d.Summary, &d.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) UpdateSummary(ctx context.Context, id uuid.UUID, summary string) error {
	_, err := r.pool.Exec(ctx, "UPDATE documents SET summary = $1 WHERE id = $2", summary, id)
	return err
}

func (r *DocumentRepo) Delete(ctx context.Context, filename string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM documents WHERE filename = $1", filename)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
