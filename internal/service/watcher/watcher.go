// Package watcher reloads the channel list when the channels file changes on disk.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kapu/multistream-checker-go/internal/constants"
	"go.uber.org/zap"
)

// Loader is satisfied by the dispatcher.
type Loader interface {
	LoadFromText(ctx context.Context, text string) int
	Active() bool
}

type Watcher struct {
	path     string
	loader   Loader
	debounce time.Duration
	logger   *zap.Logger
}

func New(path string, loader Loader, logger *zap.Logger) *Watcher {
	return &Watcher{
		path:     path,
		loader:   loader,
		debounce: constants.WatcherConfig.Debounce,
		logger:   logger,
	}
}

// Run watches the file's directory until ctx ends. Editors that replace the file on save
// emit Rename/Create on the directory rather than Write on the file, so the directory is watched.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	target, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return err
	}
	w.logger.Info("Watching channels file", zap.String("path", target))

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(w.debounce)
		case <-debounce.C:
			w.reload(ctx, target)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context, path string) {
	if !w.loader.Active() {
		w.logger.Debug("Channels file changed while idle, ignoring")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("Failed to read channels file", zap.String("path", path), zap.Error(err))
		return
	}
	n := w.loader.LoadFromText(ctx, string(data))
	w.logger.Info("Channels file reloaded", zap.Int("entries", n))
}
