package svc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Start serves the HTTP surface until the context is cancelled, then shuts
// down gracefully and closes the service.
func (s *Svc) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.ListenAddress,
		Handler: s.HttpServerMux(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutdown requested")

		sctx, cancel := context.WithTimeout(
			context.Background(),
			time.Second*time.Duration(s.config.GetProperShutdownWaitSecs()))
		defer cancel()

		return srv.Shutdown(sctx)
	})

	g.Go(func() error {
		logger.Info("serving", "addr", srv.Addr)

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	err := g.Wait()

	if cerr := s.Close(); cerr != nil {
		logger.Error("failed to close service", "err", cerr)
	}

	return err
}

// Close releases the resources of the service.
func (s *Svc) Close() error {
	return s.closeDb()
}
