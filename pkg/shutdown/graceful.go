// Package shutdown runs registered cleanup steps when the process is told to stop.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/logger"
)

// Handler manages graceful shutdown of the application
type Handler struct {
	shutdownFuncs []func(context.Context) error
	mu            sync.Mutex
	once          sync.Once
	done          chan struct{}
	logger        *logger.Logger
}

func NewHandler(log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		done:   make(chan struct{}),
		logger: log.WithComponent("shutdown"),
	}
}

// RegisterShutdownFunc registers a function to be called during shutdown.
// Functions run in reverse registration order.
func (h *Handler) RegisterShutdownFunc(fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdownFuncs = append(h.shutdownFuncs, fn)
}

// WaitForShutdown blocks until SIGINT/SIGTERM or ctx is done, then shuts down
// within timeout.
func (h *Handler) WaitForShutdown(ctx context.Context, timeout time.Duration) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		h.logger.Infow("Received signal, starting graceful shutdown", "signal", sig.String())
	case <-ctx.Done():
		h.logger.Infow("Context cancelled, starting graceful shutdown")
	}
	return h.ShutdownWithTimeout(timeout)
}

// Shutdown executes all registered shutdown functions once.
func (h *Handler) Shutdown(ctx context.Context) {
	h.once.Do(func() {
		h.mu.Lock()
		funcs := append([]func(context.Context) error(nil), h.shutdownFuncs...)
		h.mu.Unlock()

		for i := len(funcs) - 1; i >= 0; i-- {
			if err := funcs[i](ctx); err != nil {
				h.logger.Errorw("Error during shutdown", "error", err)
			}
		}
		close(h.done)
	})
}

// Done returns a channel that's closed when shutdown is complete
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

func (h *Handler) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	go h.Shutdown(ctx)

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
