package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vk/componentd/internal/ctxlog"
)

// Run executes the main application logic: create a realm per declared
// component, start them all, and wait until every exposed capability has
// reported readiness or the timeout elapses.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	for _, decl := range a.decls {
		if _, err := a.model.CreateRealm(monikerFor(decl), decl); err != nil {
			return fmt.Errorf("failed to create realm for %q: %w", decl.Name, err)
		}
	}
	a.logger.Debug("Realms created.", "count", len(a.decls))

	a.logger.Info("🚀 Starting components...", "count", len(a.decls))
	g, startCtx := errgroup.WithContext(ctx)
	for _, decl := range a.decls {
		g.Go(func() error {
			return a.model.Start(startCtx, monikerFor(decl))
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}
	a.logger.Debug("All components started; waiting for capability readiness.")

	select {
	case <-a.reporter.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(a.config.ReadyTimeout):
		readyCount, failed := a.reporter.Counts()
		return fmt.Errorf("timed out waiting for capability readiness: %d ready, %d failed", readyCount, failed)
	}

	readyCount, failed := a.reporter.Counts()
	a.logger.Info("🏁 Capability readiness complete.", "ready", readyCount, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d capabilities failed readiness", failed)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}
