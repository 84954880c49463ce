package events

import (
	"context"
	"sync"

	"github.com/vk/componentd/internal/hooks"
	"github.com/vk/componentd/internal/model"
)

// Provider reconstructs the events of one type that a subscriber would have
// received from a realm had it been registered at the time, without re-
// running side effects. The returned events are not dispatched; delivery is
// the caller's job.
type Provider interface {
	Provide(ctx context.Context, realm *model.Realm, filter Filter) []*hooks.Event
}

// Synthesizer answers late-subscription queries by delegating to the
// registered provider of each event type.
type Synthesizer struct {
	mu        sync.Mutex
	providers map[hooks.EventType]Provider
}

// NewSynthesizer creates an empty synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{providers: make(map[hooks.EventType]Provider)}
}

// RegisterProvider installs the provider for one event type, replacing any
// previous one.
func (s *Synthesizer) RegisterProvider(t hooks.EventType, p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[t] = p
}

// Synthesize reconstructs, for each given realm, the events of the
// requested types that pass the filter. Event types with no registered
// provider contribute nothing. Order follows the realm list, then each
// provider's own ordering.
func (s *Synthesizer) Synthesize(ctx context.Context, realms []*model.Realm, types []hooks.EventType, filter Filter) []*hooks.Event {
	s.mu.Lock()
	providers := make([]Provider, 0, len(types))
	for _, t := range types {
		if p, ok := s.providers[t]; ok {
			providers = append(providers, p)
		}
	}
	s.mu.Unlock()

	var out []*hooks.Event
	for _, realm := range realms {
		for _, p := range providers {
			out = append(out, p.Provide(ctx, realm, filter)...)
		}
	}
	return out
}
