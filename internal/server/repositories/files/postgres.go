package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

const selectFile = `SELECT id, user_id, storage_key, filename, file_type, upload_date, size
		FROM files`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.File, error) {
	f := &models.File{}
	if err := s.Scan(&f.ID, &f.UserID, &f.StorageKey, &f.Filename, &f.FileType, &f.UploadDate, &f.Size); err != nil {
		return nil, err
	}
	return f, nil
}

// Create inserts the record. A zero UploadDate is filled in by the database.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query :=
		`INSERT INTO files (user_id, storage_key, filename, file_type, upload_date, size)
		 VALUES ($1, $2, $3, $4, COALESCE($5, now()), $6)
		 RETURNING id, upload_date`

	var uploadDate sql.NullTime
	if !file.UploadDate.IsZero() {
		uploadDate = sql.NullTime{Time: file.UploadDate, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		file.UserID, file.StorageKey, file.Filename, file.FileType, uploadDate, file.Size,
	).Scan(&file.ID, &file.UploadDate)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.File, error) {
	query := selectFile + `
		WHERE user_id = $1
		ORDER BY upload_date DESC, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]*models.File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.File, error) {
	query := selectFile + `
		WHERE id = $1 AND user_id = $2`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) (string, error) {
	query :=
		`DELETE FROM files
		 WHERE id = $1 AND user_id = $2
		 RETURNING storage_key`

	var key string
	if err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return key, nil
}

func (r *PostgresRepository) CountByTypeForUser(ctx context.Context, userID string) (map[models.FileType]int64, error) {
	query :=
		`SELECT file_type, COUNT(*) FROM files
		 WHERE user_id = $1
		 GROUP BY file_type`

	return r.countByType(ctx, query, userID)
}

func (r *PostgresRepository) CountByType(ctx context.Context) (map[models.FileType]int64, error) {
	query := `SELECT file_type, COUNT(*) FROM files GROUP BY file_type`

	return r.countByType(ctx, query)
}

func (r *PostgresRepository) countByType(ctx context.Context, query string, args ...any) (map[models.FileType]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	defer rows.Close()

	result := make(map[models.FileType]int64)
	for rows.Next() {
		var (
			t models.FileType
			n int64
		)
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		result[t] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) CountPerUser(ctx context.Context) (map[string]int64, error) {
	query :=
		`SELECT u.email, COUNT(f.id) FROM files f
		 JOIN users u ON u.id = f.user_id
		 GROUP BY u.email`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var (
			email string
			n     int64
		)
		if err := rows.Scan(&email, &n); err != nil {
			return nil, err
		}
		result[email] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
