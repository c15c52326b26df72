package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
)

// Watcher reports post changes in a directory after a quiet period.
type Watcher struct {
	dir      string
	debounce time.Duration
	exts     map[string]struct{}
}

// NewWatcher watches dir for files with one of exts (e.g. ".md").
func NewWatcher(dir string, debounce time.Duration, exts ...string) *Watcher {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = struct{}{}
	}
	return &Watcher{dir: dir, debounce: debounce, exts: set}
}

// Run blocks until ctx is done, calling onChange once per burst of changes.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to create file watcher").Build()
	}
	defer func() { _ = fw.Close() }()
	if err := fw.Add(w.dir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to watch content directory").
			WithContext("path", w.dir).Build()
	}
	slog.Info("Watching content directory", logfields.Path(w.dir))

	var mu sync.Mutex
	var timer *time.Timer
	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, onChange)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			slog.Debug("Post change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			trigger()
		case werr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", logfields.Error(werr))
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if shouldIgnore(ev.Name) {
		return false
	}
	_, ok := w.exts[strings.ToLower(filepath.Ext(ev.Name))]
	return ok
}

// shouldIgnore filters hidden files and editor temp or swap files.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	}
	return false
}
