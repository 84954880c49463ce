package model

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/componentd/internal/fsio"
	"github.com/vk/componentd/internal/hooks"
	"github.com/vk/componentd/internal/manifest"
	"github.com/vk/componentd/internal/moniker"
)

// Runtime is the execution state of a running instance. It exists only
// while the instance is running.
type Runtime struct {
	// OutgoingDir is the orchestrator's handle to the instance's outgoing
	// namespace. Nil for components that serve no outgoing namespace.
	OutgoingDir *fsio.DirConn
	StartedAt   time.Time
}

// Realm is the runtime record for one component instance.
type Realm struct {
	// Moniker is the instance's position in the tree, stable for its
	// lifetime.
	Moniker moniker.Moniker
	// InstanceID uniquely identifies this instantiation.
	InstanceID uuid.UUID
	// Hooks is the instance's event registry.
	Hooks *hooks.Registry

	// declMu guards decl; execMu guards runtime. Hold at most one of the
	// two at a time.
	declMu sync.Mutex
	decl   *manifest.ComponentDecl

	execMu  sync.Mutex
	runtime *Runtime
}

func newRealm(m moniker.Moniker) *Realm {
	return &Realm{
		Moniker:    m,
		InstanceID: uuid.New(),
		Hooks:      hooks.NewRegistry(),
	}
}

// Decl returns the resolved declaration, or false while the manifest is
// unresolved.
func (r *Realm) Decl() (*manifest.ComponentDecl, bool) {
	r.declMu.Lock()
	defer r.declMu.Unlock()
	return r.decl, r.decl != nil
}

// SetDecl records the resolved declaration. Declarations are immutable once
// resolved.
func (r *Realm) SetDecl(decl *manifest.ComponentDecl) {
	r.declMu.Lock()
	defer r.declMu.Unlock()
	r.decl = decl
}

// Runtime returns the execution state, or false when the instance is not
// running.
func (r *Realm) Runtime() (*Runtime, bool) {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	return r.runtime, r.runtime != nil
}

// IsRunning reports whether execution state is present.
func (r *Realm) IsRunning() bool {
	_, running := r.Runtime()
	return running
}

func (r *Realm) setRuntime(rt *Runtime) {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	r.runtime = rt
}

// clearRuntime removes and returns the execution state, if any.
func (r *Realm) clearRuntime() *Runtime {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	rt := r.runtime
	r.runtime = nil
	return rt
}
