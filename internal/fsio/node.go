package fsio

import "sync"

// Status is the result code carried by an OnOpen confirmation.
type Status int32

const (
	StatusOK Status = iota
	StatusNotFound
	StatusAccessDenied
	StatusUnavailable
	StatusInternal
)

// String returns a short human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusAccessDenied:
		return "access_denied"
	case StatusUnavailable:
		return "unavailable"
	case StatusInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// OpenFlags carries the rights and behavior bits of an open or clone request.
type OpenFlags uint32

const (
	// OpenRightReadable requests read access to the node.
	OpenRightReadable OpenFlags = 1 << iota
	// OpenRightWritable requests write access to the node.
	OpenRightWritable
	// OpenRightExecutable requests execute access to the node.
	OpenRightExecutable
	// OpenFlagDescribe asks the serving side to emit exactly one OnOpen
	// confirmation on the new connection.
	OpenFlagDescribe
	// CloneFlagSameRights asks for a clone carrying the rights of the
	// original connection.
	CloneFlagSameRights
)

// Mode tags the expected node type of an open request.
type Mode uint32

const (
	ModeUnknown Mode = iota
	// ModeDirectory marks a directory-like node.
	ModeDirectory
	// ModeService marks a protocol-like node, modeled as a bidirectional
	// pipe opened with write intent.
	ModeService
)

// OnOpen is the confirmation message emitted for a describe open.
type OnOpen struct {
	Status Status
}

// NodeEvent is one message on a node connection's event stream. Only OnOpen
// messages are modeled; other traffic leaves OnOpen nil.
type NodeEvent struct {
	OnOpen *OnOpen
}

// Conn is the client end of one node connection.
type Conn struct {
	tree *Tree
	path string
	dir  bool

	events    chan NodeEvent
	closeOnce sync.Once
}

func newConn(t *Tree, path string, dir bool) *Conn {
	return &Conn{
		tree:   t,
		path:   path,
		dir:    dir,
		events: make(chan NodeEvent, 1),
	}
}

// TakeEventStream returns the connection's event stream. The stream yields
// the OnOpen confirmation for describe opens and is closed when the serving
// side goes away before confirming.
func (c *Conn) TakeEventStream() <-chan NodeEvent {
	return c.events
}

// Path returns the canonical path this connection was opened with.
func (c *Conn) Path() string {
	return c.path
}

// Close drops the client end of the connection. Closing twice is a no-op.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {})
}

// confirm emits the OnOpen confirmation. Serving side only.
func (c *Conn) confirm(status Status) {
	c.events <- NodeEvent{OnOpen: &OnOpen{Status: status}}
}

// hangUp closes the event stream without a confirmation. Serving side only.
func (c *Conn) hangUp() {
	close(c.events)
}
