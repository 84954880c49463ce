package ready

import (
	"context"

	"github.com/vk/componentd/internal/events"
	"github.com/vk/componentd/internal/hooks"
	"github.com/vk/componentd/internal/manifest"
	"github.com/vk/componentd/internal/model"
)

// Provide implements events.Provider for CapabilityReady. It reconstructs
// the events a subscriber would have received at start time for the
// capabilities admitted by the filter, re-running only the read-only
// open/describe handshake. The events are returned, not dispatched.
//
// A realm that is not running, has no outgoing namespace, or whose
// declaration is unresolved contributes nothing; none of those are errors.
func (n *Notifier) Provide(ctx context.Context, realm *model.Realm, filter events.Filter) []*hooks.Event {
	rt, running := realm.Runtime()
	if !running || rt.OutgoingDir == nil {
		return nil
	}
	decl, resolved := realm.Decl()
	if !resolved {
		return nil
	}
	exposes := decl.ExposesToFramework()
	if len(exposes) == 0 {
		return nil
	}

	var filtered []manifest.ExposeDecl
	for _, expose := range exposes {
		if filter.Matches("path", []string{expose.TargetPath}) {
			filtered = append(filtered, expose)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	outgoingNode, cloneErr := cloneOutgoingRoot(rt.OutgoingDir, realm.Moniker)
	return n.createEvents(ctx, outgoingNode, cloneErr, filtered, realm)
}
