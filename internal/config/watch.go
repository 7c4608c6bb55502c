package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"go.alderamin.dev/dgrpc/internal/paths"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher watches a data directory for changes to config.toml and
// delivers freshly loaded, validated configs on Changes. It watches the
// directory rather than the file itself: [atomicfile.Write] replaces
// config.toml by renaming a temp file over it, which swaps the inode
// fsnotify would otherwise be watching out from under it. Falls back to
// stat polling when fsnotify cannot watch the directory.
type Watcher struct {
	dir    string
	events chan *Config
	done   chan struct{}
	fsw    *fsnotify.Watcher
	once   sync.Once

	pollInterval time.Duration
}

// NewWatcher starts watching dataDir for config.toml changes. Each
// successful reload (one that parses and passes [Config.Validate])
// is delivered on the returned Watcher's Changes channel. Failed
// reloads are logged and skipped: the caller keeps running on its
// last-good config rather than crashing on a momentarily half-written
// file.
func NewWatcher(dataDir string) (*Watcher, error) {
	w := &Watcher{
		dir:          dataDir,
		events:       make(chan *Config, 1),
		done:         make(chan struct{}),
		pollInterval: 2 * time.Second,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to config polling", "error", err)
		go w.poll()
		return w, nil
	}

	if err := fsw.Add(dataDir); err != nil {
		slog.Info("cannot watch config directory, falling back to polling", "dir", dataDir, "error", err)
		fsw.Close()
		go w.poll()
		return w, nil
	}

	w.fsw = fsw
	go w.watch()
	return w, nil
}

// Changes returns the channel of successfully reloaded configs. The
// channel is buffered to 1: when a reload arrives while a previous one
// is still unread, the unread config is discarded and replaced by the
// new one, since only the latest config matters.
func (w *Watcher) Changes() <-chan *Config {
	return w.events
}

// Close stops the watcher and releases its fsnotify handle, if any.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("config: closing fsnotify watcher: %w", closeErr)
			}
		}
	})
	return err
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != paths.ConfigFile {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.reload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error watching config directory, switching to polling", "error", err)
			w.fsw.Close()
			w.fsw = nil
			go w.poll()
			return
		}
	}
}

func (w *Watcher) poll() {
	lastMod := w.configModTime()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			mod := w.configModTime()
			if mod.After(lastMod) {
				lastMod = mod
				w.reload()
			}
		}
	}
}

func (w *Watcher) configModTime() time.Time {
	info, err := os.Stat(filepath.Join(w.dir, paths.ConfigFile))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// reload loads and validates config.toml, delivering it on events if it
// parses cleanly. A config.toml caught mid-write by the watcher simply
// fails validation or parsing here and is logged; the next write event
// (the rename completing) triggers another reload attempt.
func (w *Watcher) reload() {
	cfg, err := Load(w.dir)
	if err != nil {
		slog.Warn("config_reload_failed", "dir", w.dir, "error", err)
		return
	}
	select {
	case w.events <- cfg:
	default:
		select {
		case <-w.events:
		default:
		}
		w.events <- cfg
	}
}
