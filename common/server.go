package common

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ShutdownTimeout bounds how long RunServer waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// ServerLogger is the subset of *log.Logger needed by RunServer.
type ServerLogger interface {
	Logger
	Info(msg string, keyvals ...interface{})
}

// RunServer serves until ctx is done, then shuts the server down gracefully.
func RunServer(ctx context.Context, server *http.Server, logger ServerLogger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("http server failed", "addr", server.Addr, "err", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "addr", server.Addr, "err", err)
		return err
	}
	logger.Info("http server stopped", "addr", server.Addr)
	return nil
}
