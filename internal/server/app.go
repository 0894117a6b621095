// Package server wires configuration, storage, media and transports into
// a runnable vidhub process and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server/config"
	"github.com/dmitrijs2005/vidhub/internal/server/media"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vidhub/internal/server/services"

	gs "github.com/dmitrijs2005/vidhub/internal/server/grpc"
	hs "github.com/dmitrijs2005/vidhub/internal/server/http"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      repomanager.RepositoryManager
	httpServer *hs.Server
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.New(os.Stdout, c.LogLevel)

	store, err := repomanager.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, store repomanager.RepositoryManager) (*App, error) {
	if err := store.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("store migrations error: %w", err)
	}

	uploader, err := media.NewS3Uploader(ctx, media.S3Options{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
		PublicURL:    c.S3PublicURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("media init error: %w", err)
	}

	spool, err := hs.NewSpool(c.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("upload dir error: %w", err)
	}

	sessions := services.NewSessionService(store.Accounts(), c, logger)
	accounts := services.NewAccountService(store.Accounts(), sessions, uploader, logger)

	handler := hs.NewHandler(accounts, sessions, spool, hs.CookieSettings{
		Secure:     c.SecureCookies,
		AccessTTL:  c.AccessTokenValidityDuration,
		RefreshTTL: c.RefreshTokenValidityDuration,
	})
	router := hs.NewRouter(handler, hs.NewVerifier(sessions), c.MaxUploadBytes, logger)

	return &App{
		config:     c,
		logger:     logger,
		store:      store,
		httpServer: hs.NewServer(c.EndpointAddrHTTP, router, logger),
		grpcServer: gs.NewGRPCServer(c.EndpointAddrGRPC, logger),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped with error", "server", name, "error", err)
		cancelFunc()
	}
}

// Run serves HTTP and gRPC until ctx is cancelled, a signal arrives or a
// server fails, then closes the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreDriver)

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startServer(ctx, cancelFunc, "http", app.httpServer.Run)
	}()
	go func() {
		defer wg.Done()
		app.startServer(ctx, cancelFunc, "grpc", app.grpcServer.Run)
	}()

	if err := app.store.Ping(ctx); err != nil {
		app.logger.Error(ctx, "store is not reachable", "error", err)
	} else {
		app.grpcServer.SetServing(true)
	}

	<-ctx.Done()
	app.grpcServer.SetServing(false)

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(context.Background(), "store close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
