package hooks

import (
	"context"
	"slices"
	"weak"
)

// Hook is a subscriber reacting to lifecycle events. An error returned from
// On is reported to the dispatcher for logging; it is never fatal.
type Hook interface {
	On(ctx context.Context, event *Event) error
}

// Registration binds one subscriber to the event types it is interested in.
// Registrations are immutable after creation.
type Registration struct {
	// Name identifies the subscriber in logs.
	Name string
	// Events is the subscriber's interested kind set.
	Events []EventType

	// resolve yields the live subscriber, or nil when it is gone.
	resolve func() Hook
}

// NewRegistration binds a strongly held subscriber.
func NewRegistration(name string, events []EventType, h Hook) Registration {
	return Registration{
		Name:    name,
		Events:  slices.Clone(events),
		resolve: func() Hook { return h },
	}
}

// NewWeakRegistration binds a subscriber without keeping it alive. The
// registry that owns the registration does not determine the subscriber's
// lifetime; once the subscriber is collected, the registration is silently
// skipped at dispatch time.
//
// This is what breaks the owner/observer cycle between the registry's owner
// and subscribers that themselves reference the owner.
func NewWeakRegistration[T any, H interface {
	*T
	Hook
}](name string, events []EventType, subscriber H) Registration {
	ptr := weak.Make((*T)(subscriber))
	return Registration{
		Name:   name,
		Events: slices.Clone(events),
		resolve: func() Hook {
			if p := ptr.Value(); p != nil {
				return H(p)
			}
			return nil
		},
	}
}

// interestedIn reports whether the registration subscribes to the type.
func (r Registration) interestedIn(t EventType) bool {
	return slices.Contains(r.Events, t)
}
