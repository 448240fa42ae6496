// Package http levanta el servidor HTTP del storefront.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/kittilsenstian-debug/online-store-engine/internal/observability/logger"
	"golang.org/x/sync/errgroup"
)

// ServerConfig configura timeouts y dirección del servidor.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// NewServer crea el *http.Server con los timeouts de cfg.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

// Serve atiende en ln hasta que ctx se cancela y después apaga el servidor
// esperando a lo sumo cfg.ShutdownTimeout por las requests en curso.
func Serve(ctx context.Context, ln net.Listener, cfg ServerConfig, handler http.Handler) error {
	log := logger.From(ctx).With(logger.Layer("http"), logger.Component("server"))
	srv := NewServer(cfg, handler)
	srv.BaseContext = func(net.Listener) context.Context { return context.WithoutCancel(ctx) }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		log.Info("shutting down", logger.DurationMs(timeout))
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// Start escucha en cfg.Addr y delega en Serve.
func Start(ctx context.Context, cfg ServerConfig, handler http.Handler) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, cfg, handler)
}
