// SPDX-License-Identifier: MIT

package rules

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/svoss/recplan/internal/log"
)

// Watch reloads the store and notifies subscribers when the rules file
// changes on disk outside this process. Setup errors are returned; the event
// loop runs in its own goroutine until ctx is cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(m.dataPath)); err != nil {
		_ = watcher.Close()
		return err
	}

	go m.watchLoop(ctx, watcher)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	logger := log.WithComponent("rules.watch")
	defer func() { _ = watcher.Close() }()

	// The directory is watched, not the file: atomic writes replace the
	// file inode.
	target := filepath.Clean(m.dataPath)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := m.Load(); err != nil {
				logger.Warn().Err(err).Str(log.FieldPath, m.dataPath).Msg("reload after file change failed")
				continue
			}
			logger.Info().Str(log.FieldPath, m.dataPath).Msg("rules file changed on disk, reloaded")
			m.notify()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("rules watcher error")
		}
	}
}
