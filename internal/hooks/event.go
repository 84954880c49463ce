package hooks

import (
	"fmt"

	"github.com/vk/componentd/internal/fsio"
	"github.com/vk/componentd/internal/manifest"
	"github.com/vk/componentd/internal/moniker"
)

// EventType tags one kind of lifecycle event.
type EventType string

const (
	// Started fires when a component instance begins running and its
	// outgoing namespace handle is available.
	Started EventType = "started"
	// Stopped fires when a component instance stops running.
	Stopped EventType = "stopped"
	// Destroyed fires when a component instance is removed from the tree.
	Destroyed EventType = "destroyed"
	// CapabilityReady fires once per exposed capability when the capability
	// becomes servable, or will never become servable, after a start.
	CapabilityReady EventType = "capability_ready"
)

// Payload is the success payload of one event. Implementations are small
// value types, one per event type.
type Payload interface {
	EventType() EventType
}

// StartedPayload carries the resolved declaration and the outgoing
// namespace handle of the instance that just started. OutgoingDir is nil
// for components with no outgoing namespace.
type StartedPayload struct {
	Decl        *manifest.ComponentDecl
	OutgoingDir *fsio.DirConn
}

func (StartedPayload) EventType() EventType { return Started }

// StoppedPayload marks the end of an instance's execution.
type StoppedPayload struct{}

func (StoppedPayload) EventType() EventType { return Stopped }

// DestroyedPayload marks removal of an instance from the tree.
type DestroyedPayload struct{}

func (DestroyedPayload) EventType() EventType { return Destroyed }

// CapabilityReadyPayload reports one capability that passed the readiness
// handshake. Path is the exposed target path; Node is the opened, confirmed
// connection, whose ownership transfers to the event.
type CapabilityReadyPayload struct {
	Path string
	Node *fsio.Conn
}

func (CapabilityReadyPayload) EventType() EventType { return CapabilityReady }

// EventError is the error payload of one event: the failure itself plus the
// identity of what failed.
type EventError struct {
	Err error
	// Type is the event type the error stands in for.
	Type EventType
	// Path identifies the affected capability for CapabilityReady errors.
	Path string
}

// Error implements the error interface.
func (e *EventError) Error() string {
	return fmt.Sprintf("%s event error for %q: %v", e.Type, e.Path, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *EventError) Unwrap() error {
	return e.Err
}

// Event is one readiness or lifecycle outcome concerning a single component
// instance. Exactly one of Payload and Error is set.
type Event struct {
	// Target is the moniker of the instance the event concerns.
	Target moniker.Moniker

	Payload Payload
	Error   *EventError
}

// NewEvent builds a success event.
func NewEvent(target moniker.Moniker, payload Payload) *Event {
	return &Event{Target: target, Payload: payload}
}

// NewErrorEvent builds an error event of the given type.
func NewErrorEvent(target moniker.Moniker, eventType EventType, path string, err error) *Event {
	return &Event{
		Target: target,
		Error:  &EventError{Err: err, Type: eventType, Path: path},
	}
}

// Type returns the event's type regardless of whether it carries a success
// or an error payload.
func (e *Event) Type() EventType {
	if e.Error != nil {
		return e.Error.Type
	}
	return e.Payload.EventType()
}
