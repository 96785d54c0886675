package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"cipherchat/internal/server/directmsgs"
	"cipherchat/internal/server/groupmsgs"
	"cipherchat/internal/server/migrations"
	"cipherchat/internal/server/profiles"
	"cipherchat/internal/server/refreshtokens"
)

type PostgresRepositoryManager struct {
	db             *sql.DB
	profiles       profiles.Repository
	refreshTokens  refreshtokens.Repository
	directMessages directmsgs.Repository
	groupMessages  groupmsgs.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Profiles() profiles.Repository {
	return m.profiles
}

func (m *PostgresRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *PostgresRepositoryManager) DirectMessages() directmsgs.Repository {
	return m.directMessages
}

func (m *PostgresRepositoryManager) GroupMessages() groupmsgs.Repository {
	return m.groupMessages
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, m.db, ".")
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:             db,
		profiles:       profiles.NewPostgresRepository(db),
		refreshTokens:  refreshtokens.NewPostgresRepository(db),
		directMessages: directmsgs.NewPostgresRepository(db),
		groupMessages:  groupmsgs.NewPostgresRepository(db),
	}

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
