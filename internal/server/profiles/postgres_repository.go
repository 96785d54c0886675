package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cipherchat/internal/common"
	"cipherchat/internal/dbx"
	"cipherchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {

	query :=
		`INSERT INTO profiles (username, display_name, public_key, password_hash, salt)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.UserName, p.DisplayName, p.PublicKey, p.PasswordHash, p.Salt).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query :=
		`SELECT id, username, display_name, public_key, password_hash, salt, created_at
		 FROM profiles
		 WHERE id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByUserName(ctx context.Context, userName string) (*models.Profile, error) {
	query :=
		`SELECT id, username, display_name, public_key, password_hash, salt, created_at
		 FROM profiles
		 WHERE username = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, userName))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(&p.ID, &p.UserName, &p.DisplayName, &p.PublicKey, &p.PasswordHash, &p.Salt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Search(ctx context.Context, q string, limit int) ([]*models.Profile, error) {
	query :=
		`SELECT id, username, display_name, public_key, created_at
		 FROM profiles
		 WHERE username ILIKE '%' || $1 || '%' OR display_name ILIKE '%' || $1 || '%'
		 ORDER BY username
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, q, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Profile
	for rows.Next() {
		p := &models.Profile{}
		if err := rows.Scan(&p.ID, &p.UserName, &p.DisplayName, &p.PublicKey, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) UpdatePublicKey(ctx context.Context, id string, publicKey string) error {
	query := `UPDATE profiles SET public_key = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, publicKey)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if ra != 1 {
		return common.ErrorNotFound
	}
	return nil
}
