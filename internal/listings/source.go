// SPDX-License-Identifier: MIT

// Package listings serves normalized guide data to the planner. Grabbing and
// format parsing happen outside the daemon; this source just loads the
// normalized showings file an external grabber drops into the data dir.
package listings

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/svoss/recplan/internal/log"
	"github.com/svoss/recplan/internal/plan"
)

const fileName = "showings.json"

// FileSource reads showings from a JSON file and serves window queries from
// memory. It satisfies the scheduler's listing source.
type FileSource struct {
	path   string
	logger zerolog.Logger

	mu       sync.RWMutex
	showings []plan.Showing

	subMu sync.Mutex
	subs  []func()
}

// NewFileSource creates a source backed by dataDir/showings.json.
func NewFileSource(dataDir string) *FileSource {
	return &FileSource{
		path:   filepath.Join(dataDir, fileName),
		logger: log.WithComponent("listings"),
	}
}

// Path returns the backing file path.
func (f *FileSource) Path() string { return f.path }

// Load reads the backing file. A missing file is an empty guide, not an
// error; anything else leaves the previous showings in place.
func (f *FileSource) Load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.mu.Lock()
			f.showings = nil
			f.mu.Unlock()
			return nil
		}
		return err
	}
	var showings []plan.Showing
	if err := json.Unmarshal(data, &showings); err != nil {
		return err
	}
	f.mu.Lock()
	f.showings = showings
	f.mu.Unlock()
	f.logger.Info().Int("showings", len(showings)).Msg("listings loaded")
	return nil
}

// Showings returns every loaded showing overlapping [from, to).
func (f *FileSource) Showings(_ context.Context, from, to time.Time) ([]plan.Showing, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []plan.Showing
	for _, s := range f.showings {
		if s.End.After(from) && s.Start.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Subscribe registers a callback invoked after every successful reload.
func (f *FileSource) Subscribe(fn func()) {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	f.subs = append(f.subs, fn)
}

func (f *FileSource) notify() {
	f.subMu.Lock()
	subs := append([]func(){}, f.subs...)
	f.subMu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Watch reloads the file when the grabber replaces it. Watching the
// directory survives the rename that atomic writers perform.
func (f *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != fileName {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := f.Load(); err != nil {
					f.logger.Error().Err(err).Str(log.FieldPath, f.path).Msg("listings reload failed")
					continue
				}
				f.notify()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Error().Err(err).Msg("listings watcher error")
			}
		}
	}()
	return nil
}
