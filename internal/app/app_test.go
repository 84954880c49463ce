package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/componentd/internal/manifest"
	"github.com/vk/componentd/internal/moniker"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "system.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return dir
}

func testConfig(t *testing.T, manifestPath string) *Config {
	t.Helper()
	cfg, err := NewConfig(Config{
		ManifestPath: manifestPath,
		LogFormat:    "json",
		LogLevel:     "error",
		ReadyTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return cfg
}

func TestRunReportsAllCapabilitiesReady(t *testing.T) {
	dir := writeManifest(t, `
component "logger" {
  program = {
    binary = "bin/logger"
  }

  expose protocol "/svc/logsink" {
    from = "/svc/logsink"
  }
}

component "storage" {
  expose directory "/data" {
    from   = "/out/data"
    rights = ["read"]
  }
}
`)

	var out bytes.Buffer
	a, err := New(&out, testConfig(t, dir), manifest.NewLoader())
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))

	ready, failed := a.reporter.Counts()
	assert.Equal(t, 2, ready)
	assert.Zero(t, failed)

	// Both instances keep running after readiness completes.
	for _, name := range []string{"logger", "storage"} {
		realm, ok := a.Model().LookUpRealm(moniker.New(name))
		require.True(t, ok, name)
		assert.True(t, realm.IsRunning(), name)
	}
}

func TestRunWithNoFrameworkExposesCompletesImmediately(t *testing.T) {
	dir := writeManifest(t, `
component "worker" {
  expose protocol "/svc/internal" {
    from = "/svc/internal"
    to   = "parent"
  }
}
`)

	var out bytes.Buffer
	a, err := New(&out, testConfig(t, dir), manifest.NewLoader())
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))
	ready, failed := a.reporter.Counts()
	assert.Zero(t, ready)
	assert.Zero(t, failed)
}

func TestRunFailsOnDuplicateComponentNames(t *testing.T) {
	dir := writeManifest(t, `
component "worker" {
  expose protocol "/svc/a" { from = "/svc/a" }
}
component "worker" {
  expose protocol "/svc/b" { from = "/svc/b" }
}
`)

	var out bytes.Buffer
	_, err := New(&out, testConfig(t, dir), manifest.NewLoader())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate component")
}

func TestNewFailsWhenNoManifestsFound(t *testing.T) {
	var out bytes.Buffer
	_, err := New(&out, testConfig(t, t.TempDir()), manifest.NewLoader())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no component manifests")
}

func TestReporterCompletion(t *testing.T) {
	var out bytes.Buffer
	logger := newLogger("error", "json", &out)

	r := newReporter(logger, 0)
	select {
	case <-r.Done():
	default:
		t.Fatal("reporter with nothing expected should start completed")
	}

	r = newReporter(logger, 2)
	select {
	case <-r.Done():
		t.Fatal("reporter completed before any capability reported")
	default:
	}
}
