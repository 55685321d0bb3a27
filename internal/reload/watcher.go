// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Package reload keeps the engine in step with the access definition file.
//
// The Watcher reacts to file system events on the file's directory, which
// also catches editors and config managers that replace the file by
// renaming over it, and re-checks the file on a fixed interval in case
// events are lost. A change is detected by modification time and confirmed
// by content hash before anything is parsed.
package reload

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/mqtt-file-rbac/internal/definition"
	"github.com/tomtom215/mqtt-file-rbac/internal/logging"
	"github.com/tomtom215/mqtt-file-rbac/internal/metrics"
)

// Loader installs a raw definition. *engine.Engine implements it.
type Loader interface {
	Load(raw []byte) (uint64, error)
}

// Result is the outcome of one check of the definition file.
type Result int

const (
	// ResultUnchanged means the file content matches what was last seen.
	ResultUnchanged Result = iota
	// ResultInstalled means a new definition is now being served.
	ResultInstalled
	// ResultInvalid means the file changed but was rejected.
	ResultInvalid
	// ResultMissing means the file does not exist.
	ResultMissing
	// ResultError means the file could not be read.
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultUnchanged:
		return "unchanged"
	case ResultInstalled:
		return "installed"
	case ResultInvalid:
		return "invalid"
	case ResultMissing:
		return "missing"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Config controls a Watcher.
type Config struct {
	// Path is the access definition file.
	Path string

	// Interval is the polling period.
	Interval time.Duration

	// Debounce delays a check after a file event so that a burst of
	// writes results in one reload.
	Debounce time.Duration

	// ArchiveDir receives every definition replaced by a newer one.
	// Empty disables archiving.
	ArchiveDir string
}

// Default values.
const (
	DefaultInterval = 60 * time.Second
	DefaultDebounce = 250 * time.Millisecond
)

// Watcher reloads the definition file into a Loader. It implements
// suture.Service.
type Watcher struct {
	loader   Loader
	cfg      Config
	archiver *definition.Archiver
	logger   zerolog.Logger

	mu      sync.Mutex
	modTime time.Time
	size    int64
	sum     [sha256.Size]byte
	seen    bool
	current []byte
}

// NewWatcher creates a Watcher. Nothing is read until Check or Serve.
func NewWatcher(loader Loader, cfg Config) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	w := &Watcher{
		loader: loader,
		cfg:    cfg,
		logger: logging.WithComponent("reload").With().Str("path", cfg.Path).Logger(),
	}
	if cfg.ArchiveDir != "" {
		w.archiver = definition.NewArchiver(cfg.ArchiveDir)
	}
	return w
}

// Check reads the definition file once and installs it if its content
// changed. The returned error describes why a changed file was not
// installed; an absent file is not an error.
func (w *Watcher) Check() (Result, error) {
	return w.check(false)
}

// check is Check; with trustModTime set an unchanged modification time and
// size skip reading the file.
func (w *Watcher) check(trustModTime bool) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()

	info, err := os.Stat(w.cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug().Msg("Access definition file not found, not reloading")
		return ResultMissing, nil
	}
	if err != nil {
		metrics.RecordReload(ResultError.String(), time.Since(start))
		return ResultError, fmt.Errorf("stat access definition: %w", err)
	}
	if trustModTime && w.seen && info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return ResultUnchanged, nil
	}

	raw, err := os.ReadFile(w.cfg.Path)
	if err != nil {
		metrics.RecordReload(ResultError.String(), time.Since(start))
		return ResultError, fmt.Errorf("read access definition: %w", err)
	}

	sum := sha256.Sum256(raw)
	changed := !w.seen || sum != w.sum
	w.modTime, w.size, w.sum, w.seen = info.ModTime(), info.Size(), sum, true
	if !changed {
		metrics.RecordReload(ResultUnchanged.String(), time.Since(start))
		return ResultUnchanged, nil
	}

	version, err := w.loader.Load(raw)
	if err != nil {
		result := ResultError
		if errors.Is(err, definition.ErrDefinitionInvalid) {
			result = ResultInvalid
		}
		metrics.RecordReload(result.String(), time.Since(start))

		event := w.logger.Warn()
		var ve *definition.ValidationError
		if errors.As(err, &ve) {
			event = event.Strs("problems", ve.Problems)
		} else {
			event = event.Err(err)
		}
		event.Msg("Access definition rejected, keeping the previous one")
		return result, err
	}

	metrics.RecordReload(ResultInstalled.String(), time.Since(start))
	w.logger.Info().Uint64("version", version).Msg("Access definition reloaded")

	previous := w.current
	w.current = raw
	if w.archiver != nil && previous != nil {
		if name, err := w.archiver.Archive(previous); err != nil {
			metrics.RecordArchiveFailure()
			w.logger.Warn().Err(err).Msg("Archival of the previous access definition failed")
		} else {
			w.logger.Debug().Str("archive", name).Msg("Previous access definition archived")
		}
	}
	return ResultInstalled, nil
}

// Serve watches the definition file until ctx is cancelled. When the
// directory cannot be watched it falls back to polling alone.
func (w *Watcher) Serve(ctx context.Context) error {
	trigger := make(chan struct{}, 1)

	g, gctx := errgroup.WithContext(ctx)

	fsw, err := w.openWatcher()
	if err != nil {
		w.logger.Warn().Err(err).Msg("File events unavailable, polling only")
	} else {
		defer func() { _ = fsw.Close() }()
		g.Go(func() error { return w.watchEvents(gctx, fsw, trigger) })
	}
	g.Go(func() error { return w.run(gctx, trigger) })

	return g.Wait()
}

func (w *Watcher) openWatcher() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	dir := filepath.Dir(w.cfg.Path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return fsw, nil
}

// watchEvents forwards events for the definition file to trigger.
func (w *Watcher) watchEvents(ctx context.Context, fsw *fsnotify.Watcher, trigger chan<- struct{}) error {
	target := filepath.Clean(w.cfg.Path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			select {
			case trigger <- struct{}{}:
			default:
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}

// run checks the file on every tick and shortly after each event.
func (w *Watcher) run(ctx context.Context, trigger <-chan struct{}) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	debounce := time.NewTimer(w.cfg.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-trigger:
			debounce.Reset(w.cfg.Debounce)
		case <-debounce.C:
			w.logErrors(w.check(false))
		case <-ticker.C:
			w.logErrors(w.check(true))
		}
	}
}

func (w *Watcher) logErrors(res Result, err error) {
	if res == ResultError {
		w.logger.Warn().Err(err).Msg("Access definition could not be read")
	}
}

// String returns the service name for supervisor logs.
func (w *Watcher) String() string {
	return "definition-watcher"
}
