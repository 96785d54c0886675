package db

import (
	"context"
	"database/sql"

	"cipherchat/internal/server/directmsgs"
	"cipherchat/internal/server/groupmsgs"
	"cipherchat/internal/server/profiles"
	"cipherchat/internal/server/refreshtokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Profiles() profiles.Repository
	RefreshTokens() refreshtokens.Repository
	DirectMessages() directmsgs.Repository
	GroupMessages() groupmsgs.Repository
}
