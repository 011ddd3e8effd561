package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"carelink-backend/internal/identity"
)

// AliasWatcher watches the YAML alias-table file and swaps the running
// normalizer's rules when it changes. A bad file keeps the current rules.
type AliasWatcher struct {
	path    string
	table   *identity.AliasTable
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	stopCh  chan struct{}
}

// NewAliasWatcher loads the initial table from path and prepares the
// watcher. The returned table is live: callers hand it to the normalizer
// and later reloads replace its rules in place.
func NewAliasWatcher(path string, logger *zap.Logger) (*AliasWatcher, error) {
	table, err := identity.LoadAliasTable(path)
	if err != nil {
		return nil, fmt.Errorf("load alias table: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch alias table: %w", err)
	}
	// Watch the directory too: editors and config pushes replace the file
	// atomically via rename.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("failed to watch alias table directory", zap.Error(err))
	}

	return &AliasWatcher{
		path:    path,
		table:   table,
		watcher: watcher,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Table returns the live alias table.
func (w *AliasWatcher) Table() *identity.AliasTable {
	return w.table
}

// Start begins watching for file changes.
func (w *AliasWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("alias table watcher started", zap.String("path", w.path))
}

// Stop stops the watcher.
func (w *AliasWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

func (w *AliasWatcher) watchLoop() {
	// Debounce: atomic saves fire several events in a burst.
	var debounce *time.Timer
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("alias table watcher error", zap.Error(err))
		}
	}
}

func (w *AliasWatcher) reload() {
	loaded, err := identity.LoadAliasTable(w.path)
	if err != nil {
		w.logger.Error("alias table reload failed, keeping current rules",
			zap.String("path", w.path), zap.Error(err))
		return
	}

	w.table.Replace(loaded.Rules())
	w.logger.Info("alias table reloaded",
		zap.String("path", w.path), zap.Int("rules", len(loaded.Rules())))
}
