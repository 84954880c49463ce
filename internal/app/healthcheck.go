package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/events"
	"github.com/vk/componentd/internal/hooks"
)

// healthHandler reports liveness and the number of running realms.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)

	running := 0
	for _, realm := range a.model.Realms() {
		if realm.IsRunning() {
			running++
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK running=%d\n", running)
}

// capabilitiesHandler answers on-demand capability readiness queries by
// synthesizing CapabilityReady events over all current realms, exactly the
// late-subscriber path.
func (a *App) capabilitiesHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Capabilities endpoint hit.", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(ctxlog.WithLogger(r.Context(), a.logger), 5*time.Second)
	defer cancel()

	synthesized := a.synth.Synthesize(
		ctx,
		a.model.Realms(),
		[]hooks.EventType{hooks.CapabilityReady},
		events.MatchAll(),
	)

	w.WriteHeader(http.StatusOK)
	for _, event := range synthesized {
		if event.Error != nil {
			fmt.Fprintf(w, "%s %s error=%v\n", event.Target, event.Error.Path, event.Error.Err)
			continue
		}
		if payload, ok := event.Payload.(hooks.CapabilityReadyPayload); ok {
			fmt.Fprintf(w, "%s %s ready\n", event.Target, payload.Path)
		}
	}
}

// startHealthcheckServer initializes and runs the health check HTTP server.
func (a *App) startHealthcheckServer(port int) {
	a.logger.Debug("Configuring health check server.")
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/capabilities", a.capabilitiesHandler)

	addr := fmt.Sprintf(":%d", port)

	go func() {
		a.logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			a.logger.Error("Health check server failed", "error", err)
		}
	}()
}
