package fsio

import (
	"fmt"
	"slices"
	"sync"
)

// Behavior controls how a Tree answers a describe open for one path.
type Behavior int

const (
	// BehaviorReady confirms the open with StatusOK.
	BehaviorReady Behavior = iota
	// BehaviorFail confirms the open with a non-OK status.
	BehaviorFail
	// BehaviorHang never confirms the open; the connection stays silent.
	BehaviorHang
	// BehaviorClose drops the connection without ever confirming; the event
	// stream closes immediately.
	BehaviorClose
)

type entry struct {
	mode     Mode
	behavior Behavior
	status   Status
}

// OpenRequest records one open call received by a Tree, for inspection by
// callers interested in the rights and mode that were requested.
type OpenRequest struct {
	Path  string
	Flags OpenFlags
	Mode  Mode
}

// Tree is an in-memory outgoing namespace served by a component. Entries are
// registered by canonical path; opens against unregistered paths confirm
// with StatusNotFound.
type Tree struct {
	mu       sync.Mutex
	entries  map[string]*entry
	root     entry
	requests []OpenRequest
	clones   int
	closed   bool
}

// NewTree creates an empty outgoing namespace whose root directory is ready.
func NewTree() *Tree {
	return &Tree{
		entries: make(map[string]*entry),
		root:    entry{mode: ModeDirectory, behavior: BehaviorReady},
	}
}

// Serve registers a ready entry at the given path.
func (t *Tree) Serve(path string, mode Mode) {
	t.setEntry(path, &entry{mode: mode, behavior: BehaviorReady})
}

// ServeFailing registers an entry whose describe open confirms with the
// given non-OK status.
func (t *Tree) ServeFailing(path string, status Status) {
	t.setEntry(path, &entry{behavior: BehaviorFail, status: status})
}

// ServeHanging registers an entry that never confirms a describe open.
func (t *Tree) ServeHanging(path string) {
	t.setEntry(path, &entry{behavior: BehaviorHang})
}

// ServeClosing registers an entry that drops every connection without a
// confirmation.
func (t *Tree) ServeClosing(path string) {
	t.setEntry(path, &entry{behavior: BehaviorClose})
}

func (t *Tree) setEntry(path string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[CanonicalizePath(path)] = e
}

// FailRoot makes describe clones of the root directory confirm with the
// given non-OK status.
func (t *Tree) FailRoot(status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = entry{mode: ModeDirectory, behavior: BehaviorFail, status: status}
}

// HangRoot makes describe clones of the root directory never confirm.
func (t *Tree) HangRoot() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = entry{mode: ModeDirectory, behavior: BehaviorHang}
}

// Close tears the serving side down. Subsequent opens and clones fail at
// the transport level.
func (t *Tree) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// Requests returns a copy of every open request received so far, in arrival
// order.
func (t *Tree) Requests() []OpenRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.requests)
}

// Clones returns how many clone calls the root directory has received.
func (t *Tree) Clones() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clones
}

// Connect returns a client directory connection to the root of the
// namespace. The initial connection carries no describe handshake; callers
// clone with OpenFlagDescribe to run one.
func (t *Tree) Connect() *DirConn {
	return &DirConn{Conn: newConn(t, ".", true)}
}

// DirConn is the client end of a directory connection.
type DirConn struct {
	*Conn
}

// Open issues an open request for path relative to this directory and
// returns the new node connection. The returned error reports only
// transport-level failure; readiness failures arrive on the node's event
// stream.
func (d *DirConn) Open(flags OpenFlags, mode Mode, path string) (*Conn, error) {
	t := d.tree
	canonical := CanonicalizePath(path)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("fsio: open %q: peer closed", canonical)
	}
	t.requests = append(t.requests, OpenRequest{Path: canonical, Flags: flags, Mode: mode})
	e, ok := t.entries[canonical]
	t.mu.Unlock()

	conn := newConn(t, canonical, mode == ModeDirectory)
	if flags&OpenFlagDescribe != 0 {
		switch {
		case !ok:
			conn.confirm(StatusNotFound)
		case e.behavior == BehaviorFail:
			conn.confirm(e.status)
		case e.behavior == BehaviorHang:
			// No confirmation; the caller's readiness wait suspends.
		case e.behavior == BehaviorClose:
			conn.hangUp()
		default:
			conn.confirm(StatusOK)
		}
	}
	return conn, nil
}

// Clone duplicates the directory connection. With OpenFlagDescribe the new
// connection receives the root's confirmation.
func (d *DirConn) Clone(flags OpenFlags) (*Conn, error) {
	t := d.tree

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("fsio: clone: peer closed")
	}
	t.clones++
	root := t.root
	t.mu.Unlock()

	conn := newConn(t, ".", true)
	if flags&OpenFlagDescribe != 0 {
		switch root.behavior {
		case BehaviorFail:
			conn.confirm(root.status)
		case BehaviorHang:
			// No confirmation.
		default:
			conn.confirm(StatusOK)
		}
	}
	return conn, nil
}
