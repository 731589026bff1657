// Package tuning applies desync-threshold changes to a running session.
//
// Stacking runs can last hours; rather than restarting, the operator edits
// the config file and the watcher pushes the new thresholds into the
// session.
package tuning

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/tbc-tools/fieldstack/pkg/log"
)

// Target receives threshold updates. Implementations must be safe for
// concurrent use; *stacker.Tunables qualifies.
type Target interface {
	Set(highMSE float64, driftRun int)
}

// thresholds is the subset of the config file the watcher re-reads.
type thresholds struct {
	HighMSEThreshold float64 `toml:"high_mse_threshold"`
	DriftRunLength   int     `toml:"drift_run_length"`
}

// Watcher monitors one config file via fsnotify.
type Watcher struct {
	path   string
	target Target
	logger log.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

// New creates a watcher for the config file at path.
func New(path string, target Target, logger log.Logger) *Watcher {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Watcher{path: path, target: target, logger: logger}
}

// Run watches the config file until the context is canceled. Editors often
// replace files on save, so the watch covers the containing directory and
// filters by name.
func (w *Watcher) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("tuning watcher: create failed", log.Err(err))
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		w.logger.Error("tuning watcher: watch failed",
			log.String("dir", dir), log.Err(err))
		return
	}

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceApply(100 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("tuning watcher: error", log.Err(err))
		}
	}
}

func (w *Watcher) debounceApply(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(delay, w.apply)
}

func (w *Watcher) apply() {
	b, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("tuning watcher: read failed",
			log.String("path", w.path), log.Err(err))
		return
	}
	var t thresholds
	if err := toml.Unmarshal(b, &t); err != nil {
		w.logger.Warn("tuning watcher: parse failed",
			log.String("path", w.path), log.Err(err))
		return
	}
	if t.HighMSEThreshold <= 0 && t.DriftRunLength <= 0 {
		return
	}
	w.target.Set(t.HighMSEThreshold, t.DriftRunLength)
	w.logger.Info("desync thresholds updated",
		log.Float64("high_mse", t.HighMSEThreshold),
		log.Int("drift_run", t.DriftRunLength))
}
