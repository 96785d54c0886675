package profiles

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"cipherchat/internal/common"
	"cipherchat/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+profiles\s*\(username,\s*display_name,\s*public_key,\s*password_hash,\s*salt\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id,\s*created_at\s*$`

	created := time.Now()
	mock.ExpectQuery(q).
		WithArgs("alice", "Alice", "pub", []byte("hash"), []byte("salt")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("42", created))

	p := &models.Profile{UserName: "alice", DisplayName: "Alice", PublicKey: "pub", PasswordHash: []byte("hash"), Salt: []byte("salt")}
	got, err := repo.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "42" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+profiles`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Profile{UserName: "alice"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByUserName_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	cols := []string{"id", "username", "display_name", "public_key", "password_hash", "salt", "created_at"}
	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+profiles\s+WHERE\s+username\s*=\s*\$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("42", "alice", "Alice", "pub", []byte("hash"), []byte("salt"), time.Now()))

	got, err := repo.GetByUserName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUserName error: %v", err)
	}
	if got.ID != "42" || got.PublicKey != "pub" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+profiles\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestSearch_MatchesNameAndDisplayName(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	cols := []string{"id", "username", "display_name", "public_key", "created_at"}
	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+profiles\s+WHERE\s+username\s+ILIKE\s+.*OR\s+display_name\s+ILIKE\s+.*LIMIT\s+\$2`).
		WithArgs("ali", 20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("42", "alice", "Alice", "pub", time.Now()).
			AddRow("43", "malice", "Mallory", "pub2", time.Now()))

	got, err := repo.Search(context.Background(), "ali", 20)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 2 || got[0].UserName != "alice" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestUpdatePublicKey_NotFoundWhenNoRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+profiles\s+SET\s+public_key\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("missing", "pub").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePublicKey(context.Background(), "missing", "pub")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}
