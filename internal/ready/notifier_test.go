package ready

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/fsio"
	"github.com/vk/componentd/internal/hooks"
	"github.com/vk/componentd/internal/manifest"
	"github.com/vk/componentd/internal/model"
	"github.com/vk/componentd/internal/moniker"
	"github.com/vk/componentd/internal/rights"
	localrunner "github.com/vk/componentd/internal/runner"
)

func quietCtx() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
}

// readyRecorder collects CapabilityReady events as a hook subscriber.
type readyRecorder struct {
	mu     sync.Mutex
	events []*hooks.Event
	signal chan struct{}
}

func newRecorder() *readyRecorder {
	return &readyRecorder{signal: make(chan struct{}, 64)}
}

func (r *readyRecorder) On(_ context.Context, event *hooks.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.signal <- struct{}{}
	return nil
}

func (r *readyRecorder) snapshot() []*hooks.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*hooks.Event, len(r.events))
	copy(out, r.events)
	return out
}

// await blocks until the recorder has seen at least n events.
func (r *readyRecorder) await(t *testing.T, n int) []*hooks.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		got := r.snapshot()
		if len(got) >= n {
			return got
		}
		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, have %d", n, len(got))
		}
	}
}

// assertQuiet verifies the event count settles at want and no more arrive.
func (r *readyRecorder) assertQuiet(t *testing.T, want int) {
	t.Helper()
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, r.snapshot(), want, "unexpected events arrived")
}

type failingHook struct{}

func (failingHook) On(context.Context, *hooks.Event) error {
	return errors.New("subscriber rejected the event")
}

func frameworkExpose(kind manifest.CapabilityKind, source, target string) manifest.ExposeDecl {
	return manifest.ExposeDecl{
		Kind:       kind,
		SourcePath: source,
		TargetPath: target,
		Target:     manifest.TargetFramework,
	}
}

// fixture wires a model, a notifier, and a recorder the way the application
// composes them.
type fixture struct {
	runner   *localrunner.LocalRunner
	model    *model.Model
	notifier *Notifier
	recorder *readyRecorder
}

func newFixture(t *testing.T, opts ...localrunner.Option) *fixture {
	t.Helper()
	f := &fixture{
		runner:   localrunner.NewLocal(opts...),
		recorder: newRecorder(),
	}
	f.model = model.New(f.runner)
	f.notifier = NewNotifier(f.model)
	f.model.RegisterHooks(f.notifier.Hooks()...)
	f.model.RegisterHooks(hooks.NewRegistration("test.recorder", []hooks.EventType{hooks.CapabilityReady}, f.recorder))

	// The notifier and model are referenced weakly by the hook machinery;
	// the fixture is what keeps them alive for the duration of the test.
	t.Cleanup(func() {
		runtime.KeepAlive(f.notifier)
		runtime.KeepAlive(f.model)
	})
	return f
}

func (f *fixture) start(t *testing.T, name string, exposes ...manifest.ExposeDecl) moniker.Moniker {
	t.Helper()
	m := moniker.New(name)
	decl := &manifest.ComponentDecl{Name: name, Exposes: exposes}
	_, err := f.model.CreateRealm(m, decl)
	require.NoError(t, err)
	require.NoError(t, f.model.Start(quietCtx(), m))
	return m
}

func TestNoFrameworkExposesProducesNoWork(t *testing.T) {
	f := newFixture(t)
	m := f.start(t, "quiet", manifest.ExposeDecl{
		Kind:       manifest.KindProtocol,
		SourcePath: "/svc/internal",
		TargetPath: "/svc/internal",
		Target:     manifest.TargetParent,
	})

	f.recorder.assertQuiet(t, 0)
	tree, ok := f.runner.Tree(m)
	require.True(t, ok)
	assert.Zero(t, tree.Clones(), "namespace handle should not have been duplicated")
}

func TestNoOutgoingNamespaceProducesNoWork(t *testing.T) {
	f := newFixture(t)

	// A declaration with framework exposes but a nil outgoing handle can
	// only come from a synthetic event; the reaction must still be a no-op.
	decl := &manifest.ComponentDecl{
		Name:    "hollow",
		Exposes: []manifest.ExposeDecl{frameworkExpose(manifest.KindProtocol, "/svc/echo", "/svc/echo")},
	}
	m := moniker.New("hollow")
	_, err := f.model.CreateRealm(m, decl)
	require.NoError(t, err)

	event := hooks.NewEvent(m, hooks.StartedPayload{Decl: decl, OutgoingDir: nil})
	require.NoError(t, f.notifier.On(quietCtx(), event))
	f.recorder.assertQuiet(t, 0)
}

func TestEventsArriveInDeclarationOrder(t *testing.T) {
	f := newFixture(t)
	m := f.start(t, "worker",
		frameworkExpose(manifest.KindDirectory, "/out/data", "/data"),
		frameworkExpose(manifest.KindProtocol, "/svc/echo", "/svc/echo"),
		frameworkExpose(manifest.KindDirectory, "/out/logs", "/logs"),
	)

	got := f.recorder.await(t, 3)
	require.Len(t, got, 3)
	for i, wantPath := range []string{"/data", "/svc/echo", "/logs"} {
		event := got[i]
		assert.True(t, event.Target.Equal(m))
		require.Nil(t, event.Error)
		payload, ok := event.Payload.(hooks.CapabilityReadyPayload)
		require.True(t, ok)
		assert.Equal(t, wantPath, payload.Path)
		require.NotNil(t, payload.Node)
	}
}

func TestRootOpenFailureFansOutPerCapability(t *testing.T) {
	f := newFixture(t, localrunner.WithFailingRoot(fsio.StatusAccessDenied))
	m := f.start(t, "worker",
		frameworkExpose(manifest.KindProtocol, "/svc/a", "/svc/a"),
		frameworkExpose(manifest.KindProtocol, "/svc/b", "/svc/b"),
		frameworkExpose(manifest.KindDirectory, "/out/c", "/c"),
	)

	got := f.recorder.await(t, 3)
	require.Len(t, got, 3)
	for i, wantPath := range []string{"/svc/a", "/svc/b", "/c"} {
		event := got[i]
		require.NotNil(t, event.Error, "event %d should carry an error", i)
		assert.Equal(t, hooks.CapabilityReady, event.Error.Type)
		assert.Equal(t, wantPath, event.Error.Path)

		var openErr *model.OpenDirectoryError
		require.ErrorAs(t, event.Error, &openErr)
		assert.Equal(t, "/", openErr.Path, "the root handshake is what failed")
		assert.True(t, openErr.Moniker.Equal(m))
	}

	// The per-capability opens never happened.
	tree, ok := f.runner.Tree(m)
	require.True(t, ok)
	assert.Empty(t, tree.Requests())
}

func TestUnservedCapabilityProducesErrorEvent(t *testing.T) {
	f := newFixture(t, localrunner.WithFailingPath("/svc/broken", fsio.StatusUnavailable))
	f.start(t, "worker",
		frameworkExpose(manifest.KindProtocol, "/svc/broken", "/svc/broken"),
		frameworkExpose(manifest.KindProtocol, "/svc/echo", "/svc/echo"),
	)

	got := f.recorder.await(t, 2)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].Error)
	assert.Equal(t, "/svc/broken", got[0].Error.Path)
	var openErr *model.OpenDirectoryError
	require.ErrorAs(t, got[0].Error, &openErr)
	assert.Equal(t, "svc/broken", openErr.Path)

	require.Nil(t, got[1].Error)
	payload, ok := got[1].Payload.(hooks.CapabilityReadyPayload)
	require.True(t, ok)
	assert.Equal(t, "/svc/echo", payload.Path)
}

func TestClosedConnectionProducesErrorEvent(t *testing.T) {
	f := newFixture(t, localrunner.WithClosingPath("/svc/flaky"))
	m := f.start(t, "worker",
		frameworkExpose(manifest.KindProtocol, "/svc/flaky", "/svc/flaky"),
	)

	got := f.recorder.await(t, 1)
	require.NotNil(t, got[0].Error)
	assert.Equal(t, "/svc/flaky", got[0].Error.Path)
	var openErr *model.OpenDirectoryError
	require.ErrorAs(t, got[0].Error, &openErr)
	assert.True(t, openErr.Moniker.Equal(m))
}

func TestOpenRequestsCarryRightsAndMode(t *testing.T) {
	mask := rights.Read | rights.Execute
	f := newFixture(t)
	m := f.start(t, "worker",
		frameworkExpose(manifest.KindDirectory, "/out/data", "/data"),
		manifest.ExposeDecl{
			Kind:       manifest.KindDirectory,
			SourcePath: "/out/bin",
			TargetPath: "/bin",
			Rights:     &mask,
			Target:     manifest.TargetFramework,
		},
		frameworkExpose(manifest.KindProtocol, "/svc/echo", "/svc/echo"),
	)

	f.recorder.await(t, 3)
	tree, ok := f.runner.Tree(m)
	require.True(t, ok)
	requests := tree.Requests()
	require.Len(t, requests, 3)

	// Undeclared directory rights default to read access.
	assert.Equal(t, "out/data", requests[0].Path)
	assert.Equal(t, fsio.OpenRightReadable|fsio.OpenFlagDescribe, requests[0].Flags)
	assert.Equal(t, fsio.ModeDirectory, requests[0].Mode)

	// Declared rights override the default.
	assert.Equal(t, "out/bin", requests[1].Path)
	assert.Equal(t, fsio.OpenRightReadable|fsio.OpenRightExecutable|fsio.OpenFlagDescribe, requests[1].Flags)

	// Protocols open as a service node with write intent.
	assert.Equal(t, "svc/echo", requests[2].Path)
	assert.Equal(t, fsio.OpenRightWritable|fsio.OpenFlagDescribe, requests[2].Flags)
	assert.Equal(t, fsio.ModeService, requests[2].Mode)
}

func TestTornDownRealmEndsTaskSilently(t *testing.T) {
	f := newFixture(t)

	tree := fsio.NewTree()
	tree.Serve("svc/echo", fsio.ModeService)
	decl := &manifest.ComponentDecl{
		Name:    "ghost",
		Exposes: []manifest.ExposeDecl{frameworkExpose(manifest.KindProtocol, "/svc/echo", "/svc/echo")},
	}

	// No realm exists for this moniker; the background task must notice
	// and exit without dispatching anything.
	event := hooks.NewEvent(moniker.New("ghost"), hooks.StartedPayload{Decl: decl, OutgoingDir: tree.Connect()})
	require.NoError(t, f.notifier.On(quietCtx(), event))

	f.recorder.assertQuiet(t, 0)
	assert.Equal(t, 1, tree.Clones(), "the handle is duplicated before the realm lookup")
	assert.Empty(t, tree.Requests())
}

func TestSubscriberFailureDoesNotBlockDelivery(t *testing.T) {
	f := newFixture(t)
	// Registered after the fixture's recorder; order within one event does
	// not affect whether later events flow.
	f.model.RegisterHooks(hooks.NewRegistration("test.failing", []hooks.EventType{hooks.CapabilityReady}, failingHook{}))

	f.start(t, "worker",
		frameworkExpose(manifest.KindProtocol, "/svc/a", "/svc/a"),
		frameworkExpose(manifest.KindProtocol, "/svc/b", "/svc/b"),
		frameworkExpose(manifest.KindProtocol, "/svc/c", "/svc/c"),
	)

	got := f.recorder.await(t, 3)
	for i, wantPath := range []string{"/svc/a", "/svc/b", "/svc/c"} {
		payload, ok := got[i].Payload.(hooks.CapabilityReadyPayload)
		require.True(t, ok)
		assert.Equal(t, wantPath, payload.Path)
	}
}

func TestHangingComponentDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t, localrunner.WithHangingPath("/svc/slow"))
	f.start(t, "slow", frameworkExpose(manifest.KindProtocol, "/svc/slow", "/svc/slow"))
	f.start(t, "fast", frameworkExpose(manifest.KindProtocol, "/svc/fast", "/svc/fast"))

	got := f.recorder.await(t, 1)
	payload, ok := got[0].Payload.(hooks.CapabilityReadyPayload)
	require.True(t, ok)
	assert.Equal(t, "/svc/fast", payload.Path)

	// The slow component's readiness task stays suspended; no error event
	// is fabricated for it.
	f.recorder.assertQuiet(t, 1)
}

func TestStartReturnsBeforeReadinessResolves(t *testing.T) {
	f := newFixture(t, localrunner.WithHangingRoot())

	done := make(chan struct{})
	go func() {
		f.start(t, "worker", frameworkExpose(manifest.KindProtocol, "/svc/echo", "/svc/echo"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("start blocked on the readiness handshake")
	}
	f.recorder.assertQuiet(t, 0)
}
