package credentials

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch drops the in-memory cache whenever something else rewrites the
// credentials file, so a login or logout performed beside a running server
// takes effect without a restart. Blocks until ctx is canceled.
func (s *Store) Watch(ctx context.Context, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating credentials watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the parent directory: the file may not exist yet, and saves
	// replace it by rename rather than writing in place.
	if err := watcher.Add(filepath.Dir(s.targetPath)); err != nil {
		return fmt.Errorf("watching credentials directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.targetPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			s.invalidate()
			logger.Debug("credentials file changed on disk",
				zap.String("path", s.targetPath),
				zap.String("op", event.Op.String()),
			)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("credentials watcher error", zap.Error(err))
		}
	}
}
