// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/mqtt-file-rbac/internal/definition"
	"github.com/tomtom215/mqtt-file-rbac/internal/engine"
	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
)

const pass1Hash = "c2FsdA==:100:MAK8JjJQh/c4uYbwkAm33TRXCbeuBC+meeK9ww3Mu4KTv08+8ywTKgF24MNHotOESjDmsutrEk+38PaZVX2TFA=="

func definitionFor(topicFilter string) string {
	return `<file-rbac><users><user><name>user1</name><password>` + pass1Hash +
		`</password><roles><id>r</id></roles></user></users><roles><role><id>r</id><permissions>` +
		`<permission><topic>` + topicFilter + `</topic></permission></permissions></role></roles></file-rbac>`
}

type fixture struct {
	engine  *engine.Engine
	path    string
	archive string
	watcher *Watcher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	dir := t.TempDir()
	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Path = filepath.Join(dir, "credentials.xml")
	cfg.ArchiveDir = filepath.Join(dir, "credentials-archive")
	return &fixture{
		engine:  eng,
		path:    cfg.Path,
		archive: cfg.ArchiveDir,
		watcher: NewWatcher(eng, cfg),
	}
}

func (f *fixture) write(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(f.path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// replace writes content to a temporary file and renames it over the
// definition, as editors and config managers do.
func (f *fixture) replace(t *testing.T, content string) {
	t.Helper()
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) archived(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.archive)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWatcher_Check(t *testing.T) {
	f := newFixture(t, Config{})

	if res, err := f.watcher.Check(); res != ResultMissing || err != nil {
		t.Fatalf("missing file: Check() = %v, %v", res, err)
	}
	if f.engine.Ready() {
		t.Fatal("engine should not be ready without a file")
	}

	f.write(t, definitionFor("a/#"))
	if res, err := f.watcher.Check(); res != ResultInstalled || err != nil {
		t.Fatalf("first load: Check() = %v, %v", res, err)
	}
	if f.engine.Version() != 1 {
		t.Errorf("version = %d, want 1", f.engine.Version())
	}
	if got := f.archived(t); len(got) != 0 {
		t.Errorf("first load archived %v", got)
	}

	// Same content is not installed again.
	f.write(t, definitionFor("a/#"))
	if res, err := f.watcher.Check(); res != ResultUnchanged || err != nil {
		t.Errorf("rewrite with same content: Check() = %v, %v", res, err)
	}
	if f.engine.Version() != 1 {
		t.Errorf("version after unchanged content = %d, want 1", f.engine.Version())
	}
}

func TestWatcher_InvalidKeepsPrevious(t *testing.T) {
	f := newFixture(t, Config{})
	f.write(t, definitionFor("a/#"))
	if _, err := f.watcher.Check(); err != nil {
		t.Fatal(err)
	}

	before := testutil.ToFloat64(metrics.ReloadsTotal.WithLabelValues("invalid"))

	f.write(t, definitionFor("a/#/b"))
	res, err := f.watcher.Check()
	if res != ResultInvalid || !errors.Is(err, definition.ErrDefinitionInvalid) {
		t.Fatalf("Check() = %v, %v; want invalid", res, err)
	}
	if f.engine.Version() != 1 {
		t.Errorf("version = %d, want the previous 1", f.engine.Version())
	}
	if got := testutil.ToFloat64(metrics.ReloadsTotal.WithLabelValues("invalid")); got != before+1 {
		t.Errorf("invalid reloads = %v, want %v", got, before+1)
	}

	// The rejected content is not retried until it changes.
	if res, _ := f.watcher.Check(); res != ResultUnchanged {
		t.Errorf("second check of rejected content = %v, want unchanged", res)
	}
}

func TestWatcher_ArchivesPreviousDefinition(t *testing.T) {
	f := newFixture(t, Config{})

	first := definitionFor("a/#")
	f.write(t, first)
	if _, err := f.watcher.Check(); err != nil {
		t.Fatal(err)
	}

	f.write(t, definitionFor("b/#"))
	if res, err := f.watcher.Check(); res != ResultInstalled || err != nil {
		t.Fatalf("Check() = %v, %v", res, err)
	}
	if f.engine.Version() != 2 {
		t.Errorf("version = %d, want 2", f.engine.Version())
	}

	names := f.archived(t)
	if len(names) != 1 || !strings.HasSuffix(names[0], "-credentials.xml") {
		t.Fatalf("archive = %v, want one credentials file", names)
	}
	got, err := os.ReadFile(filepath.Join(f.archive, names[0]))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != first {
		t.Error("archive should hold the replaced definition")
	}
}

func TestWatcher_ArchiveFailureDoesNotBlockReload(t *testing.T) {
	f := newFixture(t, Config{})

	// A file where the archive directory should be.
	if err := os.WriteFile(f.archive, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	f.write(t, definitionFor("a/#"))
	if _, err := f.watcher.Check(); err != nil {
		t.Fatal(err)
	}

	before := testutil.ToFloat64(metrics.ArchiveFailures)
	f.write(t, definitionFor("b/#"))
	if res, err := f.watcher.Check(); res != ResultInstalled || err != nil {
		t.Fatalf("Check() = %v, %v", res, err)
	}
	if got := testutil.ToFloat64(metrics.ArchiveFailures); got != before+1 {
		t.Errorf("archive failures = %v, want %v", got, before+1)
	}
}

func TestWatcher_ArchivingDisabled(t *testing.T) {
	dir := t.TempDir()
	eng, _ := engine.New(engine.DefaultConfig())
	path := filepath.Join(dir, "credentials.xml")
	w := NewWatcher(eng, Config{Path: path})

	for _, filter := range []string{"a/#", "b/#"} {
		if err := os.WriteFile(path, []byte(definitionFor(filter)), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Check(); err != nil {
			t.Fatal(err)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the definition", len(entries))
	}
}

func waitForVersion(t *testing.T, eng *engine.Engine, want uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for eng.Version() < want {
		if time.Now().After(deadline) {
			t.Fatalf("version = %d, want %d", eng.Version(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatcher_ServeReactsToFileEvents(t *testing.T) {
	// A long interval leaves file events as the only trigger.
	f := newFixture(t, Config{Interval: time.Hour, Debounce: 10 * time.Millisecond})
	f.write(t, definitionFor("a/#"))
	if _, err := f.watcher.Check(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.watcher.Serve(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	f.replace(t, definitionFor("b/#"))
	waitForVersion(t, f.engine, 2)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestWatcher_ServePolls(t *testing.T) {
	f := newFixture(t, Config{Interval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.watcher.Serve(ctx) }()

	// The file appears after the watcher started.
	f.write(t, definitionFor("a/#"))
	waitForVersion(t, f.engine, 1)
}

func TestResult_String(t *testing.T) {
	for r, want := range map[Result]string{
		ResultUnchanged: "unchanged",
		ResultInstalled: "installed",
		ResultInvalid:   "invalid",
		ResultMissing:   "missing",
		ResultError:     "error",
		Result(42):      "unknown",
	} {
		if got := r.String(); got != want {
			t.Errorf("Result(%d).String() = %q, want %q", r, got, want)
		}
	}
	if got := NewWatcher(nil, Config{}).String(); got != "definition-watcher" {
		t.Errorf("String() = %q", got)
	}
}
