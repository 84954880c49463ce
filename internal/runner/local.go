// Package runner provides the in-process execution backend for component
// instances: starting one means serving its declared outgoing namespace.
package runner

import (
	"context"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/fsio"
	"github.com/vk/componentd/internal/manifest"
	"github.com/vk/componentd/internal/moniker"
)

// Option tweaks how a LocalRunner serves declared paths.
type Option func(*LocalRunner)

// WithFailingPath makes every started component confirm opens of the given
// source path with a non-OK status.
func WithFailingPath(path string, status fsio.Status) Option {
	return func(r *LocalRunner) {
		r.failures[fsio.CanonicalizePath(path)] = status
	}
}

// WithHangingPath makes every started component never confirm opens of the
// given source path.
func WithHangingPath(path string) Option {
	return func(r *LocalRunner) {
		r.hangs[fsio.CanonicalizePath(path)] = struct{}{}
	}
}

// WithClosingPath makes every started component drop connections to the
// given source path without a confirmation.
func WithClosingPath(path string) Option {
	return func(r *LocalRunner) {
		r.closes[fsio.CanonicalizePath(path)] = struct{}{}
	}
}

// WithFailingRoot makes every served outgoing root confirm describe clones
// with the given non-OK status.
func WithFailingRoot(status fsio.Status) Option {
	return func(r *LocalRunner) {
		r.rootStatus = &status
	}
}

// WithHangingRoot makes every served outgoing root never confirm describe
// clones.
func WithHangingRoot() Option {
	return func(r *LocalRunner) {
		r.rootHangs = true
	}
}

// LocalRunner starts components by serving their declared source paths from
// an in-memory outgoing namespace.
type LocalRunner struct {
	mu         sync.Mutex
	trees      map[string]*fsio.Tree
	failures   map[string]fsio.Status
	hangs      map[string]struct{}
	closes     map[string]struct{}
	rootStatus *fsio.Status
	rootHangs  bool
}

// NewLocal creates a LocalRunner.
func NewLocal(opts ...Option) *LocalRunner {
	r := &LocalRunner{
		trees:    make(map[string]*fsio.Tree),
		failures: make(map[string]fsio.Status),
		hangs:    make(map[string]struct{}),
		closes:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start serves the component's outgoing namespace and returns a client
// handle to it. A component that exposes nothing serves no namespace and
// returns a nil handle.
func (r *LocalRunner) Start(ctx context.Context, m moniker.Moniker, decl *manifest.ComponentDecl) (*fsio.DirConn, error) {
	logger := ctxlog.FromContext(ctx)

	if binary, ok := programBinary(decl.Program); ok {
		logger.Debug("Starting program.", "moniker", m.String(), "binary", binary)
	}
	if len(decl.Exposes) == 0 {
		logger.Debug("Component exposes nothing; serving no outgoing namespace.", "moniker", m.String())
		return nil, nil
	}

	tree := fsio.NewTree()
	if r.rootStatus != nil {
		tree.FailRoot(*r.rootStatus)
	}
	if r.rootHangs {
		tree.HangRoot()
	}
	for _, expose := range decl.Exposes {
		path := fsio.CanonicalizePath(expose.SourcePath)
		if status, ok := r.failures[path]; ok {
			tree.ServeFailing(path, status)
			continue
		}
		if _, ok := r.hangs[path]; ok {
			tree.ServeHanging(path)
			continue
		}
		if _, ok := r.closes[path]; ok {
			tree.ServeClosing(path)
			continue
		}
		mode := fsio.ModeService
		if expose.Kind == manifest.KindDirectory {
			mode = fsio.ModeDirectory
		}
		tree.Serve(path, mode)
	}

	r.mu.Lock()
	r.trees[m.String()] = tree
	r.mu.Unlock()

	return tree.Connect(), nil
}

// Stop tears down the component's outgoing namespace.
func (r *LocalRunner) Stop(ctx context.Context, m moniker.Moniker) error {
	r.mu.Lock()
	tree, ok := r.trees[m.String()]
	delete(r.trees, m.String())
	r.mu.Unlock()

	if ok {
		tree.Close()
	}
	return nil
}

// Tree returns the namespace currently served for the instance, if any.
func (r *LocalRunner) Tree(m moniker.Moniker) (*fsio.Tree, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tree, ok := r.trees[m.String()]
	return tree, ok
}

// programBinary extracts the binary attribute from a manifest program
// value, when present.
func programBinary(program cty.Value) (string, bool) {
	if program.IsNull() || !program.Type().IsObjectType() {
		return "", false
	}
	if !program.Type().HasAttribute("binary") {
		return "", false
	}
	binary := program.GetAttr("binary")
	if binary.Type() != cty.String || binary.IsNull() {
		return "", false
	}
	return binary.AsString(), true
}
