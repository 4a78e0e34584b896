package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cuenca-ubate/internal/config"
)

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// New builds the HTTP server from the configured address and timeouts
func New(cfg *config.Config, handler http.Handler) *http.Server {
	timeouts := timeoutsOf(cfg)
	return &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadTimeout:       timeouts.ReadTimeout,
		ReadHeaderTimeout: timeouts.ReadTimeout,
		WriteTimeout:      timeouts.WriteTimeout,
		IdleTimeout:       timeouts.IdleTimeout,
	}
}

// Shutdown drains srv within the configured shutdown timeout
func Shutdown(ctx context.Context, cfg *config.Config, srv *http.Server) error {
	ctx, cancel := context.WithTimeout(ctx, timeoutsOf(cfg).ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func timeoutsOf(cfg *config.Config) config.ServerConfig {
	out := config.ServerConfig{
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		IdleTimeout:     defaultIdleTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
	}
	if cfg.Server == nil {
		return out
	}
	if cfg.Server.ReadTimeout > 0 {
		out.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		out.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.IdleTimeout > 0 {
		out.IdleTimeout = cfg.Server.IdleTimeout
	}
	if cfg.Server.ShutdownTimeout > 0 {
		out.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	return out
}
