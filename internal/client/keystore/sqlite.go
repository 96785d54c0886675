package keystore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/pressly/goose/v3"
	"golang.org/x/crypto/argon2"

	"cipherchat/internal/client/keystore/migrations"
	"cipherchat/internal/common"

	_ "github.com/mattn/go-sqlite3"
)

const (
	saltSize  = 16
	nonceSize = 12
)

// SQLiteKeystore seals private keys into a local SQLite database. The sealing
// key is derived from the passphrase with argon2id using a per-row random
// salt, so two users sharing a machine never share derived keys.
type SQLiteKeystore struct {
	db *sql.DB
}

func NewSQLiteKeystore(ctx context.Context, dsn string) (*SQLiteKeystore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("keystore open: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("keystore dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("keystore migrations: %w", err)
	}

	return &SQLiteKeystore{db: db}, nil
}

func deriveSealKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

func (k *SQLiteKeystore) Put(ctx context.Context, userID string, privateKey []byte, passphrase []byte) error {
	salt := common.GenerateRandByteArray(saltSize)

	sealKey := deriveSealKey(passphrase, salt)
	defer common.WipeByteArray(sealKey)

	block, err := aes.NewCipher(sealKey)
	if err != nil {
		return fmt.Errorf("keystore seal: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("keystore seal: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("keystore seal: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, privateKey, []byte(userID))

	query := `INSERT INTO private_keys (user_id, sealed_key, salt, nonce)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET sealed_key = excluded.sealed_key,
			salt = excluded.salt,
			nonce = excluded.nonce`
	if _, err := k.db.ExecContext(ctx, query, userID, sealed, salt, nonce); err != nil {
		return fmt.Errorf("keystore upsert: %w", err)
	}
	return nil
}

func (k *SQLiteKeystore) Get(ctx context.Context, userID string, passphrase []byte) ([]byte, error) {
	query := `SELECT sealed_key, salt, nonce FROM private_keys WHERE user_id = ?`

	var sealed, salt, nonce []byte
	err := k.db.QueryRowContext(ctx, query, userID).Scan(&sealed, &salt, &nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keystore select: %w", err)
	}

	sealKey := deriveSealKey(passphrase, salt)
	defer common.WipeByteArray(sealKey)

	block, err := aes.NewCipher(sealKey)
	if err != nil {
		return nil, fmt.Errorf("keystore open: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keystore open: %w", err)
	}

	privateKey, err := gcm.Open(nil, nonce, sealed, []byte(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return privateKey, nil
}

func (k *SQLiteKeystore) Delete(ctx context.Context, userID string) error {
	if _, err := k.db.ExecContext(ctx, `DELETE FROM private_keys WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("keystore delete: %w", err)
	}
	return nil
}

func (k *SQLiteKeystore) Close() error {
	return k.db.Close()
}
