// Command shopsense 启动推荐服务：加载目录与向量，对外提供 HTTP 接口。
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rushteam/shopsense/config"
	"github.com/rushteam/shopsense/engine"
	"github.com/rushteam/shopsense/logging"
	"github.com/rushteam/shopsense/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Load(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load engine")
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logging.Warn().Err(err).Msg("engine close failed")
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(eng, logging.Component("http")).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logging.Error().Err(err).Msg("http server failed")
			stop()
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("http server shutdown failed")
	}
	logging.Info().Msg("shutdown complete")
}
