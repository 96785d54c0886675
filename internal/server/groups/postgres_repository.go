package groups

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

func (r *PostgresRepository) CreateGroup(ctx context.Context, g *models.ChatGroup) (*models.ChatGroup, error) {

	query :=
		`INSERT INTO chat_groups (name, description, avatar_url, created_by, encrypted_group_key)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		g.Name, g.Description, g.AvatarURL, g.CreatedBy, g.EncryptedGroupKey).
		Scan(&g.ID, &g.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return g, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.ChatGroup, error) {

	query :=
		`SELECT id, name, description, avatar_url, created_by, encrypted_group_key, created_at
		 FROM chat_groups
		 WHERE id = $1
		 `

	g := &models.ChatGroup{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.Name, &g.Description, &g.AvatarURL, &g.CreatedBy, &g.EncryptedGroupKey, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]*models.ChatGroup, error) {

	query :=
		`SELECT g.id, g.name, g.description, g.avatar_url, g.created_by, g.encrypted_group_key, g.created_at
		 FROM chat_groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = $1
		 ORDER BY g.created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ChatGroup
	for rows.Next() {
		g := &models.ChatGroup{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.AvatarURL, &g.CreatedBy, &g.EncryptedGroupKey, &g.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) InsertMember(ctx context.Context, m *models.GroupMember) error {

	query :=
		`INSERT INTO group_members (group_id, user_id, role, encrypted_group_key)
		 VALUES ($1, $2, $3, $4)
		 `

	_, err := r.db.ExecContext(ctx, query, m.GroupID, m.UserID, m.Role, m.EncryptedGroupKey)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteMember(ctx context.Context, groupID, userID string) error {

	query := `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, groupID, userID)
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

func (r *PostgresRepository) GetMembership(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {

	query :=
		`SELECT group_id, user_id, role, encrypted_group_key, joined_at
		 FROM group_members
		 WHERE group_id = $1 AND user_id = $2
		 `

	m := &models.GroupMember{}
	err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(
		&m.GroupID, &m.UserID, &m.Role, &m.EncryptedGroupKey, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error) {

	query :=
		`SELECT m.group_id, m.user_id, m.role, m.encrypted_group_key, m.joined_at,
		        p.username, p.display_name, p.public_key
		 FROM group_members m
		 JOIN profiles p ON p.id = m.user_id
		 WHERE m.group_id = $1
		 ORDER BY m.joined_at
		 `

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.GroupMember
	for rows.Next() {
		m := &models.GroupMember{}
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.EncryptedGroupKey, &m.JoinedAt,
			&m.UserName, &m.DisplayName, &m.PublicKey); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {

	query := `SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
