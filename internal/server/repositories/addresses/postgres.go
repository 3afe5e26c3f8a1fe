package addresses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

const selectAddress = `SELECT id, user_id, address_type, street_address, city, state, postal_code, country,
		is_default, created_at
		FROM addresses`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAddress(s scanner) (*models.Address, error) {
	a := &models.Address{}
	err := s.Scan(&a.ID, &a.UserID, &a.AddressType, &a.StreetAddress, &a.City, &a.State,
		&a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Address, error) {
	query := selectAddress + `
		WHERE user_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select addresses: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.Address, error) {
	query := selectAddress + `
		WHERE id = $1 AND user_id = $2`

	a, err := scanAddress(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COUNT(*) FROM addresses WHERE user_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Address) (*models.Address, error) {
	query :=
		`INSERT INTO addresses (user_id, address_type, street_address, city, state, postal_code, country, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		a.UserID, a.AddressType, a.StreetAddress, a.City, a.State, a.PostalCode, a.Country, a.IsDefault,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *models.Address) error {
	query :=
		`UPDATE addresses
		 SET address_type = $3, street_address = $4, city = $5, state = $6,
		     postal_code = $7, country = $8, is_default = $9
		 WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.AddressType, a.StreetAddress, a.City, a.State, a.PostalCode, a.Country, a.IsDefault)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	query :=
		`DELETE FROM addresses
		 WHERE id = $1 AND user_id = $2
		 RETURNING is_default`

	var wasDefault bool
	if err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&wasDefault); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return wasDefault, nil
}

func (r *PostgresRepository) ClearDefault(ctx context.Context, userID string) error {
	query := `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetDefault(ctx context.Context, userID, id string) error {
	query := `UPDATE addresses SET is_default = TRUE WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) PromoteOldest(ctx context.Context, userID string) error {
	query :=
		`UPDATE addresses SET is_default = TRUE
		 WHERE id = (
		     SELECT id FROM addresses WHERE user_id = $1
		     ORDER BY created_at, id
		     LIMIT 1
		 )`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
