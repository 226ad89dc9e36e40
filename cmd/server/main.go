package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/net/netutil"

	"mediastream/config"
	"mediastream/handlers"
	"mediastream/internal/database"
	"mediastream/internal/logging"
	"mediastream/services/accounts"
	"mediastream/services/auth"
	"mediastream/services/library"
	"mediastream/utils"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server.fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(logging.Options{
		File:  cfg.LogFile,
		Debug: os.Getenv("DEBUG") != "",
	})

	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(cfg.DataDir, "mediastream.db"),
	})
	if err != nil {
		return err
	}
	defer db.Close()

	accountSvc, err := accounts.NewService(db.Accounts, cfg.Accounts)
	if err != nil {
		return err
	}

	// The session key lives only for this process: a restart invalidates
	// every outstanding token.
	authSvc, err := auth.NewService(accountSvc, auth.Config{
		SessionDuration:  cfg.SessionDuration,
		LockoutThreshold: cfg.LockoutThreshold,
	})
	if err != nil {
		return err
	}

	fsys := afero.NewOsFs()
	librarySvc, err := library.NewService(fsys, library.Config{
		Root:    cfg.MediaRoot,
		Formats: cfg.FileFormats,
	})
	if err != nil {
		return err
	}

	router := utils.NewRouter(cfg.AllowedOrigins)
	handlers.Register(router,
		handlers.NewAuthHandler(authSvc),
		handlers.NewStreamHandler(authSvc, librarySvc, fsys, cfg.ChunkSize, cfg.DefaultContentType),
	)

	addr := fmt.Sprintf("%s:%d", cfg.BindHost, cfg.BindPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	listener = netutil.LimitListener(listener, cfg.MaxConnections)

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: long-running media streams are expected.
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server.listening", "addr", addr, "media_root", cfg.MediaRoot)
		errCh <- server.Serve(listener)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		slog.Info("server.shutdown", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
