package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vk/componentd/internal/hooks"
)

// readinessReporter subscribes to CapabilityReady events across all realms,
// logs each outcome, and signals completion once every expected capability
// has reported.
type readinessReporter struct {
	logger *slog.Logger

	mu        sync.Mutex
	remaining int
	ready     int
	failed    int
	done      chan struct{}
}

func newReporter(logger *slog.Logger, expected int) *readinessReporter {
	r := &readinessReporter{
		logger:    logger,
		remaining: expected,
		done:      make(chan struct{}),
	}
	if expected == 0 {
		close(r.done)
	}
	return r
}

// On implements hooks.Hook.
func (r *readinessReporter) On(ctx context.Context, event *hooks.Event) error {
	if event.Error != nil {
		r.logger.Warn("Capability failed readiness.",
			"moniker", event.Target.String(),
			"path", event.Error.Path,
			"error", event.Error.Err,
		)
		r.complete(false)
		return nil
	}
	if payload, ok := event.Payload.(hooks.CapabilityReadyPayload); ok {
		r.logger.Info("Capability ready.",
			"moniker", event.Target.String(),
			"path", payload.Path,
		)
		r.complete(true)
	}
	return nil
}

func (r *readinessReporter) complete(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.ready++
	} else {
		r.failed++
	}
	if r.remaining > 0 {
		r.remaining--
		if r.remaining == 0 {
			close(r.done)
		}
	}
}

// Done is closed once every expected capability has reported.
func (r *readinessReporter) Done() <-chan struct{} {
	return r.done
}

// Counts returns how many capabilities reported ready and failed so far.
func (r *readinessReporter) Counts() (ready, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready, r.failed
}
