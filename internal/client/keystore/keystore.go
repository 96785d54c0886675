// Package keystore stores the user's private encryption key on the local
// machine. Keys are sealed with AES-GCM under a key derived from the user's
// passphrase, so the database file alone is useless without it. There is no
// recovery path: losing the key makes everything encrypted to its public half
// permanently unreadable.
package keystore

import "context"

// Keystore is the private-key storage contract. Get returns
// common.ErrorNotFound when no key exists for the user; callers treat that as
// "cannot decrypt", never as a crash. Exactly one key is held per user, Put
// replaces any previous one.
type Keystore interface {
	Get(ctx context.Context, userID string, passphrase []byte) ([]byte, error)
	Put(ctx context.Context, userID string, privateKey []byte, passphrase []byte) error
	Delete(ctx context.Context, userID string) error
	Close() error
}
