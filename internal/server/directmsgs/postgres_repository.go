package directmsgs

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

const messageColumns = `id, sender_id, recipient_id, encrypted_content, iv, content_type, file_url, read_at, created_at`

func (r *PostgresRepository) Create(ctx context.Context, m *models.DirectMessage) (*models.DirectMessage, error) {

	query :=
		`INSERT INTO direct_messages (sender_id, recipient_id, encrypted_content, iv, content_type, file_url)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		m.SenderID, m.RecipientID, m.EncryptedContent, m.IV, m.ContentType, m.FileURL).
		Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) ListConversation(ctx context.Context, userA, userB string) ([]*models.DirectMessage, error) {

	query := `SELECT ` + messageColumns + `
		 FROM direct_messages
		 WHERE (sender_id = $1 AND recipient_id = $2)
		    OR (sender_id = $2 AND recipient_id = $1)
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.DirectMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.DirectMessage, error) {

	query := `SELECT ` + messageColumns + ` FROM direct_messages WHERE id = $1`

	m := &models.DirectMessage{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.SenderID, &m.RecipientID, &m.EncryptedContent, &m.IV,
		&m.ContentType, &m.FileURL, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id, recipientID string) error {

	query :=
		`UPDATE direct_messages SET read_at = now()
		 WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL
		 `

	_, err := r.db.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {

	query :=
		`SELECT count(*) FROM direct_messages
		 WHERE recipient_id = $1 AND read_at IS NULL
		 `

	var n int
	if err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func scanMessage(rows *sql.Rows) (*models.DirectMessage, error) {
	m := &models.DirectMessage{}
	err := rows.Scan(
		&m.ID, &m.SenderID, &m.RecipientID, &m.EncryptedContent, &m.IV,
		&m.ContentType, &m.FileURL, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}
