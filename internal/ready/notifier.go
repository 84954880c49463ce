// Package ready implements capability-readiness notification: it watches
// for Started events and, for each capability the started component exposes
// to the framework, runs the open-with-describe readiness handshake against
// the component's outgoing namespace and dispatches exactly one
// CapabilityReady event, success or error, per capability.
//
// Readiness work never blocks start handling. The Started reaction does
// only cheap synchronous setup and hands off to a detached goroutine whose
// result is never observed by the trigger path.
package ready

import (
	"context"
	"weak"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/fsio"
	"github.com/vk/componentd/internal/hooks"
	"github.com/vk/componentd/internal/manifest"
	"github.com/vk/componentd/internal/model"
	"github.com/vk/componentd/internal/moniker"
	"github.com/vk/componentd/internal/rights"
)

// Notifier watches Started events and dispatches one CapabilityReady event
// per exposed capability.
//
// The notifier holds only a weak reference to the model: the hook
// registries reachable from the model are what keep the notifier itself
// alive, and a strong reference in both directions would form an
// uncollectable cycle. "Model gone" is a normal terminal state checked on
// every use.
type Notifier struct {
	model weak.Pointer[model.Model]
}

// NewNotifier creates a notifier over the given model.
func NewNotifier(m *model.Model) *Notifier {
	return &Notifier{model: weak.Make(m)}
}

// Hooks returns the registrations binding the notifier to the Started
// event. The subscription is weak; the registries never determine the
// notifier's lifetime.
func (n *Notifier) Hooks() []hooks.Registration {
	return []hooks.Registration{
		hooks.NewWeakRegistration("ready.Notifier", []hooks.EventType{hooks.Started}, n),
	}
}

// On implements hooks.Hook for the Started event. It returns immediately:
// with no work at all when the component exposes nothing to the framework
// or serves no outgoing namespace, and otherwise right after duplicating
// the namespace handle and spawning the background readiness task.
func (n *Notifier) On(ctx context.Context, event *hooks.Event) error {
	payload, ok := event.Payload.(hooks.StartedPayload)
	if !ok {
		return nil
	}
	exposes := payload.Decl.ExposesToFramework()
	if len(exposes) == 0 {
		return nil
	}
	if payload.OutgoingDir == nil {
		// No outgoing namespace, nothing can become ready.
		return nil
	}
	n.onComponentStarted(ctx, event.Target, payload.OutgoingDir, exposes)
	return nil
}

func (n *Notifier) onComponentStarted(ctx context.Context, target moniker.Moniker, outgoingDir *fsio.DirConn, exposes []manifest.ExposeDecl) {
	// Duplicate the handle synchronously: its ownership is not guaranteed
	// once control returns to the caller. A clone failure rides along into
	// the task so it can surface as error events rather than silence.
	outgoingNode, cloneErr := cloneOutgoingRoot(outgoingDir, target)

	ctx = context.WithoutCancel(ctx)
	go func() {
		// If the model or realm is gone, there is nowhere to dispatch to.
		// That is an expected race with teardown, so the task just exits.
		m := n.model.Value()
		if m == nil {
			return
		}
		realm, ok := m.LookUpRealm(target)
		if !ok {
			return
		}
		n.dispatchCapabilitiesReady(ctx, outgoingNode, cloneErr, exposes, realm)
	}()
}

// dispatchCapabilitiesReady waits for the outgoing namespace to become
// ready, then dispatches one event per exposed capability, sequentially and
// in declaration order, through the realm's hook registry.
func (n *Notifier) dispatchCapabilitiesReady(ctx context.Context, outgoingNode *fsio.Conn, cloneErr error, exposes []manifest.ExposeDecl, realm *model.Realm) {
	logger := ctxlog.FromContext(ctx)
	for _, event := range n.createEvents(ctx, outgoingNode, cloneErr, exposes, realm) {
		if err := realm.Hooks.Dispatch(ctx, event); err != nil {
			logger.Error("Error notifying capability ready.", "moniker", realm.Moniker.String(), "error", err)
		}
	}
}

// createEvents runs the readiness handshake on the outgoing namespace root
// and then once per exposed capability. A root failure is threaded into the
// per-capability phase so it still yields one error event per declared
// capability rather than zero events.
func (n *Notifier) createEvents(ctx context.Context, outgoingNode *fsio.Conn, cloneErr error, exposes []manifest.ExposeDecl, realm *model.Realm) []*hooks.Event {
	outgoingDir, dirErr := n.openOutgoingRoot(ctx, outgoingNode, cloneErr, realm.Moniker)

	events := make([]*hooks.Event, 0, len(exposes))
	for _, expose := range exposes {
		var mode fsio.Mode
		var mask rights.Rights
		switch expose.Kind {
		case manifest.KindDirectory:
			mode = fsio.ModeDirectory
			mask = rights.ReadRights
			if expose.Rights != nil {
				mask = *expose.Rights
			}
		case manifest.KindProtocol:
			// Protocol connections are a bidirectional pipe opened with
			// write intent.
			mode = fsio.ModeService
			mask = rights.WriteRights
		default:
			continue
		}
		events = append(events, n.createEvent(ctx, realm, outgoingDir, dirErr, mode, mask, expose.SourcePath, expose.TargetPath))
	}
	return events
}

func (n *Notifier) openOutgoingRoot(ctx context.Context, outgoingNode *fsio.Conn, cloneErr error, target moniker.Moniker) (*fsio.DirConn, error) {
	if cloneErr != nil {
		return nil, cloneErr
	}
	if err := waitForOnOpen(ctx, outgoingNode, target, "/"); err != nil {
		return nil, err
	}
	dir, err := fsio.NodeToDirectory(outgoingNode)
	if err != nil {
		return nil, model.NewOpenDirectoryError(target, "/")
	}
	return dir, nil
}

// createEvent opens one capability inside the outgoing namespace and wraps
// the outcome, either way, in an event carrying the exposed target path.
func (n *Notifier) createEvent(ctx context.Context, realm *model.Realm, outgoingDir *fsio.DirConn, dirErr error, mode fsio.Mode, mask rights.Rights, sourcePath, targetPath string) *hooks.Event {
	node, err := func() (*fsio.Conn, error) {
		// Open calls reject absolute paths.
		canonical := fsio.CanonicalizePath(sourcePath)
		if dirErr != nil {
			return nil, dirErr
		}
		node, err := outgoingDir.Open(mask.Flags()|fsio.OpenFlagDescribe, mode, canonical)
		if err != nil {
			return nil, model.NewOpenDirectoryError(realm.Moniker, canonical)
		}
		if err := waitForOnOpen(ctx, node, realm.Moniker, canonical); err != nil {
			return nil, err
		}
		return node, nil
	}()

	if err != nil {
		return hooks.NewErrorEvent(realm.Moniker, hooks.CapabilityReady, targetPath, err)
	}
	return hooks.NewEvent(realm.Moniker, hooks.CapabilityReadyPayload{Path: targetPath, Node: node})
}

// waitForOnOpen consumes the OnOpen confirmation on the node. It suspends
// until the component starts serving the node. A non-OK status, any other
// message, or the stream closing first all collapse into the same
// open-directory error.
func waitForOnOpen(ctx context.Context, node *fsio.Conn, target moniker.Moniker, path string) error {
	select {
	case ev, ok := <-node.TakeEventStream():
		if !ok || ev.OnOpen == nil || ev.OnOpen.Status != fsio.StatusOK {
			return model.NewOpenDirectoryError(target, path)
		}
		return nil
	case <-ctx.Done():
		return model.NewOpenDirectoryError(target, path)
	}
}

// cloneOutgoingRoot duplicates the outgoing namespace handle with a
// describe handshake attached to the new connection.
func cloneOutgoingRoot(outgoingDir *fsio.DirConn, target moniker.Moniker) (*fsio.Conn, error) {
	node, err := outgoingDir.Clone(fsio.CloneFlagSameRights | fsio.OpenFlagDescribe)
	if err != nil {
		return nil, model.NewOpenDirectoryError(target, "/")
	}
	return node, nil
}
