// Package cli is the interactive terminal client: a small REPL over the chat
// API. All encryption and decryption happens here on the client; the server
// only ever sees ciphertext.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"cipherchat/internal/client/client"
	"cipherchat/internal/client/config"
	"cipherchat/internal/client/keystore"
	"cipherchat/internal/client/stores"
	"cipherchat/internal/common"
	"cipherchat/internal/filex"
	"cipherchat/internal/logging"
)

type App struct {
	config *config.Config
	api    *client.HTTPClient
	keys   keystore.Keystore
	logger logging.Logger
	reader *bufio.Reader

	// session state, populated on login
	userID     string
	userName   string
	passphrase []byte
	realtime   *client.Realtime
	stopEvents func()
	direct     *stores.DirectStore
	group      *stores.GroupStore
	unread     *stores.UnreadCounter
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	dataDir, err := filex.EnsureSubdDir("data")
	if err != nil {
		return nil, err
	}

	keystorePath := c.KeystorePath
	if !filepath.IsAbs(keystorePath) {
		keystorePath = filepath.Join(dataDir, keystorePath)
	}

	keys, err := keystore.NewSQLiteKeystore(ctx, keystorePath)
	if err != nil {
		return nil, err
	}

	// diagnostics go to a file so the REPL stays readable
	logFile, err := os.OpenFile(filepath.Join(dataDir, "client.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	sl := slog.New(slog.NewJSONHandler(logFile, nil))

	return &App{
		config: c,
		api:    client.NewHTTPClient(c.ServerBaseURL),
		keys:   keys,
		logger: logging.NewSlogLogger(sl),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.teardownSession()
	defer a.keys.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.userID != ""
}

// sessionKeys adapts the passphrase-gated keystore to the key source the
// conversation stores expect.
type sessionKeys struct {
	store      keystore.Keystore
	passphrase []byte
}

func (s *sessionKeys) Get(ctx context.Context, userID string) ([]byte, error) {
	return s.store.Get(ctx, userID, s.passphrase)
}

// startSession builds the stores and realtime pipeline after a successful
// login: one websocket connection, fanned out to the direct store, the group
// store, and the unread badge.
func (a *App) startSession(ctx context.Context) error {
	keySource := &sessionKeys{store: a.keys, passphrase: a.passphrase}

	a.direct = stores.NewDirectStore(a.api, keySource, a.userID, a.logger)
	a.group = stores.NewGroupStore(a.api, keySource, a.userID, a.logger)
	a.unread = stores.NewUnreadCounter(a.userID)

	if count, err := a.api.UnreadCount(ctx); err == nil {
		a.unread.Seed(count)
	}

	wsURL, err := a.api.WebsocketURL()
	if err != nil {
		return err
	}
	realtime, err := client.NewRealtime(ctx, wsURL, a.logger)
	if err != nil {
		return err
	}
	a.realtime = realtime

	events, cancel := realtime.Subscribe()
	a.stopEvents = cancel
	go func() {
		for event := range events {
			a.direct.Apply(ctx, event)
			a.group.Apply(ctx, event)
			a.unread.Apply(event)
		}
	}()
	return nil
}

func (a *App) teardownSession() {
	if a.stopEvents != nil {
		a.stopEvents()
		a.stopEvents = nil
	}
	if a.realtime != nil {
		_ = a.realtime.Close()
		a.realtime = nil
	}
	if a.direct != nil {
		a.direct.Close()
		a.direct = nil
	}
	if a.group != nil {
		a.group.Close()
		a.group = nil
	}
	common.WipeByteArray(a.passphrase)
	a.passphrase = nil
	a.userID = ""
	a.userName = ""
	a.unread = nil
}
