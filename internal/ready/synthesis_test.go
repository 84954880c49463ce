package ready

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/componentd/internal/events"
	"github.com/vk/componentd/internal/fsio"
	"github.com/vk/componentd/internal/hooks"
	"github.com/vk/componentd/internal/manifest"
	"github.com/vk/componentd/internal/model"
	"github.com/vk/componentd/internal/moniker"
	localrunner "github.com/vk/componentd/internal/runner"
)

func pathFilter(paths ...string) events.Filter {
	return events.NewFilter(map[string][]string{"path": paths})
}

func realmFor(t *testing.T, f *fixture, m moniker.Moniker) *model.Realm {
	t.Helper()
	realm, ok := f.model.LookUpRealm(m)
	require.True(t, ok)
	return realm
}

func TestSynthesisReplaysLiveEvents(t *testing.T) {
	f := newFixture(t)
	m := f.start(t, "worker",
		frameworkExpose(manifest.KindDirectory, "/out/data", "/data"),
		frameworkExpose(manifest.KindProtocol, "/svc/echo", "/svc/echo"),
	)
	live := f.recorder.await(t, 2)
	realm := realmFor(t, f, m)

	got := f.notifier.Provide(quietCtx(), realm, events.MatchAll())
	require.Len(t, got, 2)
	for i, event := range got {
		assert.True(t, event.Target.Equal(m))
		require.Nil(t, event.Error)
		payload, ok := event.Payload.(hooks.CapabilityReadyPayload)
		require.True(t, ok)
		assert.Equal(t, live[i].Payload.(hooks.CapabilityReadyPayload).Path, payload.Path)
		require.NotNil(t, payload.Node)
	}
}

func TestSynthesisHonorsPathFilter(t *testing.T) {
	f := newFixture(t)
	m := f.start(t, "worker",
		frameworkExpose(manifest.KindProtocol, "/svc/a", "/svc/a"),
		frameworkExpose(manifest.KindProtocol, "/svc/b", "/svc/b"),
	)
	f.recorder.await(t, 2)
	realm := realmFor(t, f, m)

	got := f.notifier.Provide(quietCtx(), realm, pathFilter("/svc/b"))
	require.Len(t, got, 1)
	payload, ok := got[0].Payload.(hooks.CapabilityReadyPayload)
	require.True(t, ok)
	assert.Equal(t, "/svc/b", payload.Path)

	assert.Empty(t, f.notifier.Provide(quietCtx(), realm, pathFilter("/nope")))
}

func TestSynthesisReportsCurrentServingState(t *testing.T) {
	f := newFixture(t, localrunner.WithFailingPath("/svc/broken", fsio.StatusUnavailable))
	m := f.start(t, "worker",
		frameworkExpose(manifest.KindProtocol, "/svc/broken", "/svc/broken"),
	)
	f.recorder.await(t, 1)
	realm := realmFor(t, f, m)

	got := f.notifier.Provide(quietCtx(), realm, events.MatchAll())
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Error)
	assert.Equal(t, hooks.CapabilityReady, got[0].Error.Type)
	assert.Equal(t, "/svc/broken", got[0].Error.Path)
}

func TestSynthesisSkipsStoppedRealm(t *testing.T) {
	f := newFixture(t)
	m := f.start(t, "worker",
		frameworkExpose(manifest.KindProtocol, "/svc/echo", "/svc/echo"),
	)
	f.recorder.await(t, 1)
	realm := realmFor(t, f, m)
	require.NoError(t, f.model.Stop(quietCtx(), m))

	assert.Empty(t, f.notifier.Provide(quietCtx(), realm, events.MatchAll()))
}

func TestSynthesisSkipsNeverStartedRealm(t *testing.T) {
	f := newFixture(t)
	m := moniker.New("idle")
	decl := &manifest.ComponentDecl{
		Name:    "idle",
		Exposes: []manifest.ExposeDecl{frameworkExpose(manifest.KindProtocol, "/svc/echo", "/svc/echo")},
	}
	_, err := f.model.CreateRealm(m, decl)
	require.NoError(t, err)
	realm := realmFor(t, f, m)

	assert.Empty(t, f.notifier.Provide(quietCtx(), realm, events.MatchAll()))
}

func TestSynthesisSkipsRealmWithoutFrameworkExposes(t *testing.T) {
	f := newFixture(t)
	m := f.start(t, "internal", manifest.ExposeDecl{
		Kind:       manifest.KindProtocol,
		SourcePath: "/svc/echo",
		TargetPath: "/svc/echo",
		Target:     manifest.TargetParent,
	})
	realm := realmFor(t, f, m)

	assert.Empty(t, f.notifier.Provide(quietCtx(), realm, events.MatchAll()))
}

func TestSynthesizerIntegration(t *testing.T) {
	f := newFixture(t)
	f.start(t, "alpha", frameworkExpose(manifest.KindProtocol, "/svc/a", "/svc/a"))
	f.start(t, "beta", frameworkExpose(manifest.KindProtocol, "/svc/b", "/svc/b"))
	f.recorder.await(t, 2)

	synth := events.NewSynthesizer()
	synth.RegisterProvider(hooks.CapabilityReady, f.notifier)

	got := synth.Synthesize(quietCtx(), f.model.Realms(), []hooks.EventType{hooks.CapabilityReady}, events.MatchAll())
	require.Len(t, got, 2)

	paths := make([]string, 0, len(got))
	for _, event := range got {
		require.Nil(t, event.Error)
		paths = append(paths, event.Payload.(hooks.CapabilityReadyPayload).Path)
	}
	assert.ElementsMatch(t, []string{"/svc/a", "/svc/b"}, paths)
}
