// Package app wires the orchestrator together: manifest loading, the realm
// model, the capability-readiness notifier, and the reporting subscriber,
// plus the application lifecycle around them.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/events"
	"github.com/vk/componentd/internal/hooks"
	"github.com/vk/componentd/internal/manifest"
	"github.com/vk/componentd/internal/model"
	"github.com/vk/componentd/internal/moniker"
	"github.com/vk/componentd/internal/ready"
	"github.com/vk/componentd/internal/runner"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	decls []*manifest.ComponentDecl
	model *model.Model
	// notifier is held strongly here: its hook registrations are weak, so
	// the app is what keeps it alive.
	notifier *ready.Notifier
	synth    *events.Synthesizer
	reporter *readinessReporter
}

// New constructs a fully wired App: logger, manifests, model, notifier,
// synthesis provider, and the readiness reporter subscribed to every realm.
func New(outW io.Writer, cfg *Config, loader *manifest.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	decls, err := loader.Load(ctx, cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load component manifests: %w", err)
	}
	if len(decls) == 0 {
		return nil, fmt.Errorf("no component manifests found under %q", cfg.ManifestPath)
	}
	logger.Debug("Component manifests loaded.", "components", len(decls))

	md := model.New(runner.NewLocal())
	notifier := ready.NewNotifier(md)

	synth := events.NewSynthesizer()
	synth.RegisterProvider(hooks.CapabilityReady, notifier)

	total := 0
	for _, decl := range decls {
		total += len(decl.ExposesToFramework())
	}
	reporter := newReporter(logger, total)

	md.RegisterHooks(notifier.Hooks()...)
	md.RegisterHooks(hooks.NewRegistration(
		"app.reporter",
		[]hooks.EventType{hooks.CapabilityReady},
		reporter,
	))
	logger.Debug("Hooks registered.", "expected_capabilities", total)

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		decls:    decls,
		model:    md,
		notifier: notifier,
		synth:    synth,
		reporter: reporter,
	}, nil
}

// Model returns the application's realm model. This is primarily for
// testing.
func (a *App) Model() *model.Model {
	return a.model
}

// monikerFor places a declared component directly under the root realm.
func monikerFor(decl *manifest.ComponentDecl) moniker.Moniker {
	return moniker.Root().Child(decl.Name)
}
