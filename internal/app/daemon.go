package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Serve runs a cycle immediately and then once per interval until ctx is
// cancelled. Cycles never overlap: a cycle that outlasts the interval delays
// the next one. When a metrics listen address is configured the Prometheus
// endpoint is served alongside.
func (a *SnapGCApp) Serve(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = a.cfg.Interval()
	}

	g, ctx := errgroup.WithContext(ctx)

	if addr := a.cfg.Metrics.ListenAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           a.MetricsHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			a.logger.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return a.loop(ctx, interval)
	})

	return g.Wait()
}

func (a *SnapGCApp) loop(ctx context.Context, interval time.Duration) error {
	a.logger.Info("reconciler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := a.RunCycle(ctx); err != nil {
			a.logger.Error("failed to record cycle", "err", err)
		}

		select {
		case <-ctx.Done():
			a.logger.Info("reconciler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// MetricsHandler returns the Prometheus endpoint handler, mounted at /metrics.
func (a *SnapGCApp) MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}
