package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpHandler "github.com/anthanhphan/go-channel-file-storage/internal/api/adapter/inbound/http"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/config"
	"github.com/anthanhphan/gosdk/logger"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	cfg    *config.Config
	deps   *Deps
	server *httpHandler.Server
}

func New(configPath string) (*App, error) {
	// 1. Load Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	logger.InitLogger(&cfg.Logger)

	// 3. Adapters & Services
	deps, err := NewDeps(cfg)
	if err != nil {
		return nil, err
	}

	// 4. HTTP Server
	httpServer := httpHandler.NewServer(cfg, deps.Files, deps.Links, deps.Deletes, deps.Network)

	return &App{
		cfg:    cfg,
		deps:   deps,
		server: httpServer,
	}, nil
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Network first, so the queue sees a real status when it resumes.
	a.deps.Network.Start(ctx)
	if err := a.deps.Deletes.Start(ctx); err != nil {
		a.deps.Network.Stop()
		return err
	}

	logger.Infow("Channel storage gateway starting", "addr", a.cfg.Server.Addr, "public_url", a.cfg.Server.PublicURL)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			serverErrCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		logger.Infow("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrCh:
		runErr = fmt.Errorf("http server failed: %w", err)
		logger.Errorw("API server exited unexpectedly", "error", err.Error())
	}

	logger.Info("Shutting down gateway")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		logger.Errorw("API shutdown error", "error", err.Error())
		if runErr == nil {
			runErr = err
		}
	}

	cancel()
	a.deps.Deletes.Stop()
	a.deps.Network.Stop()
	if err := a.deps.Close(); err != nil {
		logger.Warnw("Index close error", "error", err.Error())
	}

	return runErr
}
