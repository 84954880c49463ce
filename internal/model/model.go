package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/fsio"
	"github.com/vk/componentd/internal/hooks"
	"github.com/vk/componentd/internal/manifest"
	"github.com/vk/componentd/internal/moniker"
)

// Runner starts and stops the program of a component instance. Start
// returns the orchestrator's handle to the instance's outgoing namespace,
// or nil when the component serves none.
type Runner interface {
	Start(ctx context.Context, m moniker.Moniker, decl *manifest.ComponentDecl) (*fsio.DirConn, error)
	Stop(ctx context.Context, m moniker.Moniker) error
}

// Model is the shared runtime state of the orchestrator: the realm map plus
// the base hook registrations installed into every new realm.
type Model struct {
	runner Runner

	mu     sync.Mutex
	realms map[string]*Realm

	hooksMu   sync.Mutex
	baseHooks []hooks.Registration
}

// New creates an empty model backed by the given runner.
func New(runner Runner) *Model {
	return &Model{
		runner: runner,
		realms: make(map[string]*Realm),
	}
}

// RegisterHooks records registrations that are installed into the registry
// of every realm created afterwards.
func (md *Model) RegisterHooks(regs ...hooks.Registration) {
	md.hooksMu.Lock()
	defer md.hooksMu.Unlock()
	md.baseHooks = append(md.baseHooks, regs...)
}

// CreateRealm creates the runtime record for an instance at the given
// moniker, with its declaration already resolved when decl is non-nil.
func (md *Model) CreateRealm(m moniker.Moniker, decl *manifest.ComponentDecl) (*Realm, error) {
	md.mu.Lock()
	defer md.mu.Unlock()
	key := m.String()
	if _, exists := md.realms[key]; exists {
		return nil, fmt.Errorf("realm already exists: %s", key)
	}

	realm := newRealm(m)
	if decl != nil {
		realm.SetDecl(decl)
	}

	md.hooksMu.Lock()
	realm.Hooks.Register(md.baseHooks...)
	md.hooksMu.Unlock()

	md.realms[key] = realm
	return realm, nil
}

// LookUpRealm finds the realm for a moniker. Absence means the instance was
// torn down; it is not an error.
func (md *Model) LookUpRealm(m moniker.Moniker) (*Realm, bool) {
	md.mu.Lock()
	defer md.mu.Unlock()
	realm, ok := md.realms[m.String()]
	return realm, ok
}

// Realms returns a snapshot of all current realms.
func (md *Model) Realms() []*Realm {
	md.mu.Lock()
	defer md.mu.Unlock()
	out := make([]*Realm, 0, len(md.realms))
	for _, realm := range md.realms {
		out = append(out, realm)
	}
	return out
}

// Start runs the instance at the given moniker: invokes the runner, records
// execution state, and dispatches the Started event through the realm's
// hook registry. Dispatch failures are logged, never propagated.
func (md *Model) Start(ctx context.Context, m moniker.Moniker) error {
	logger := ctxlog.FromContext(ctx)

	realm, ok := md.LookUpRealm(m)
	if !ok {
		return fmt.Errorf("realm not found: %s", m)
	}
	decl, ok := realm.Decl()
	if !ok {
		return fmt.Errorf("start %s: %w", m, ErrDeclNotResolved)
	}
	if realm.IsRunning() {
		return fmt.Errorf("realm already running: %s", m)
	}

	outgoing, err := md.runner.Start(ctx, m, decl)
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", m, err)
	}
	realm.setRuntime(&Runtime{OutgoingDir: outgoing, StartedAt: time.Now()})

	event := hooks.NewEvent(m, hooks.StartedPayload{Decl: decl, OutgoingDir: outgoing})
	if err := realm.Hooks.Dispatch(ctx, event); err != nil {
		logger.Error("Error dispatching started event.", "moniker", m.String(), "error", err)
	}

	logger.Debug("Component started.", "moniker", m.String(), "instance_id", realm.InstanceID.String())
	return nil
}

// Stop halts the instance, clears its execution state, and dispatches the
// Stopped event. Stopping a realm that is not running is a no-op.
func (md *Model) Stop(ctx context.Context, m moniker.Moniker) error {
	logger := ctxlog.FromContext(ctx)

	realm, ok := md.LookUpRealm(m)
	if !ok {
		return nil
	}
	if realm.clearRuntime() == nil {
		return nil
	}
	if err := md.runner.Stop(ctx, m); err != nil {
		return fmt.Errorf("failed to stop %s: %w", m, err)
	}

	event := hooks.NewEvent(m, hooks.StoppedPayload{})
	if err := realm.Hooks.Dispatch(ctx, event); err != nil {
		logger.Error("Error dispatching stopped event.", "moniker", m.String(), "error", err)
	}
	return nil
}

// Destroy stops the instance if needed and removes its realm from the tree,
// dispatching the Destroyed event. In-flight background work holding the
// realm keeps using stale but valid handles; new lookups fail.
func (md *Model) Destroy(ctx context.Context, m moniker.Moniker) error {
	logger := ctxlog.FromContext(ctx)

	realm, ok := md.LookUpRealm(m)
	if !ok {
		return nil
	}
	if err := md.Stop(ctx, m); err != nil {
		return err
	}

	md.mu.Lock()
	delete(md.realms, m.String())
	md.mu.Unlock()

	event := hooks.NewEvent(m, hooks.DestroyedPayload{})
	if err := realm.Hooks.Dispatch(ctx, event); err != nil {
		logger.Error("Error dispatching destroyed event.", "moniker", m.String(), "error", err)
	}
	return nil
}
