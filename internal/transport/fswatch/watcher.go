package fswatch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/transport/pdf"
)

// Invalidator drops cached page text for documents whose identity starts with a prefix.
type Invalidator interface {
	Invalidate(ctx context.Context, refPrefix string) (int, error)
}

// Watcher invalidates cached page text when PDFs under the documents root change.
type Watcher struct {
	fs     *fsnotify.Watcher
	root   string
	cache  Invalidator
	logger *zap.Logger
}

// New watches root and all of its subdirectories.
func New(root string, cache Invalidator, logger *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve documents root: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{fs: fw, root: abs, cache: cache, logger: logger}
	if err := w.addRecursive(abs); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Document watcher error", zap.Error(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Create) && isDir(event.Name) {
		if err := w.addRecursive(event.Name); err != nil {
			w.logger.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
		}
		return
	}
	if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	prefix := pdf.LocalKey(event.Name) + "#"
	n, err := w.cache.Invalidate(ctx, prefix)
	if err != nil {
		w.logger.Warn("Failed to invalidate cached pages", zap.String("path", event.Name), zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Info("Invalidated cached pages",
			zap.String("path", event.Name), zap.String("op", event.Op.String()), zap.Int("documents", n))
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
