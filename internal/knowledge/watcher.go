package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const defaultSettle = 250 * time.Millisecond

// Watcher reloads a registry when its overlay file changes on disk.
type Watcher struct {
	path     string
	registry *Registry
	logger   *logrus.Logger
	settle   time.Duration
	reloaded chan struct{}
}

// NewWatcher creates a watcher for the overlay file at path.
func NewWatcher(path string, registry *Registry, logger *logrus.Logger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		registry: registry,
		logger:   logger,
		settle:   defaultSettle,
		reloaded: make(chan struct{}, 1),
	}
}

// Reloaded is signalled after every reload attempt.
func (w *Watcher) Reloaded() <-chan struct{} {
	return w.reloaded
}

// Run blocks until ctx is cancelled. The parent directory is watched so that
// editors which replace the file via rename are handled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	w.logger.WithField("path", w.path).Info("Watching rule tables for changes")

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			// Editors emit several events per save; reload once they settle.
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			_ = w.registry.ReloadFrom(w.path)
			select {
			case w.reloaded <- struct{}{}:
			default:
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Rule table watcher error")
		}
	}
}
