// Package server initializes and runs the cipherchat backend: it wires
// repositories, domain services, the realtime hub, and the HTTP server, and
// handles graceful shutdown on OS signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cipherchat/internal/logging"
	"cipherchat/internal/server/config"
	"cipherchat/internal/server/directmsgs"
	"cipherchat/internal/server/files"
	"cipherchat/internal/server/groupmsgs"
	"cipherchat/internal/server/groups"
	"cipherchat/internal/server/httpapi"
	"cipherchat/internal/server/profiles"
	"cipherchat/internal/server/shared/db"
	"cipherchat/internal/server/ws"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	httpSrv *httpapi.Server
	hub     *ws.Hub
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	m, err := db.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	ps := profiles.NewService(m.Profiles(), m.RefreshTokens(), c)
	gs := groups.NewService(m.Conn())
	dms := directmsgs.NewService(m.DirectMessages())
	gms := groupmsgs.NewService(m.GroupMessages(), gs)
	fs := files.NewService(c)

	hub := ws.NewHub(gs, logger)
	srv := httpapi.NewServer(ps, dms, gs, gms, fs, hub, logger, c)

	return &App{config: c, logger: logger, httpSrv: srv, hub: hub}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.httpSrv.Router(),
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.hub.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
