package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Registry is a per-component-instance mapping from event type to
// interested subscribers. Registration order is preserved and drives
// dispatch order.
type Registry struct {
	mu   sync.Mutex
	regs []Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds registrations to the registry. Registration cannot fail.
func (r *Registry) Register(regs ...Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = append(r.regs, regs...)
}

// Dispatch delivers the event to every live, interested subscriber in
// registration order. A failure from one subscriber does not prevent
// delivery to the next; the aggregate error is returned for logging only.
//
// Subscribers run outside the registry lock; they synchronize themselves.
func (r *Registry) Dispatch(ctx context.Context, event *Event) error {
	r.mu.Lock()
	regs := make([]Registration, len(r.regs))
	copy(regs, r.regs)
	r.mu.Unlock()

	var errs []error
	for _, reg := range regs {
		if !reg.interestedIn(event.Type()) {
			continue
		}
		hook := reg.resolve()
		if hook == nil {
			// Subscriber was collected; its registration is inert.
			continue
		}
		if err := hook.On(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("hook %q: %w", reg.Name, err))
		}
	}
	return errors.Join(errs...)
}
