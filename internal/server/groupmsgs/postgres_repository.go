package groupmsgs

import (
	"context"
	"fmt"

	"cipherchat/internal/dbx"
	"cipherchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.GroupMessage) (*models.GroupMessage, error) {

	query :=
		`INSERT INTO group_messages (group_id, sender_id, encrypted_content, iv, content_type, file_url, file_name)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		m.GroupID, m.SenderID, m.EncryptedContent, m.IV, m.ContentType, m.FileURL, m.FileName).
		Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) ListByGroup(ctx context.Context, groupID string) ([]*models.GroupMessage, error) {

	query :=
		`SELECT id, group_id, sender_id, encrypted_content, iv, content_type, file_url, file_name, created_at
		 FROM group_messages
		 WHERE group_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.GroupMessage
	for rows.Next() {
		m := &models.GroupMessage{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.EncryptedContent, &m.IV,
			&m.ContentType, &m.FileURL, &m.FileName, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
