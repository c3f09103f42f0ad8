package session

import (
	"context"
	"path/filepath"
	"time"

	"github.com/adamavenir/agora/internal/logging"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the credentials file whenever it changes, so a login in
// another terminal takes effect without restarting. It blocks until ctx is
// done. Invalid intermediate writes keep the previous credentials.
func (s *Session) Watch(ctx context.Context, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	if s.path == "" {
		<-ctx.Done()
		return ctx.Err()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: atomic writes replace the file via rename.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce = time.After(reloadDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("credentials watcher error", zap.Error(err))
		case <-debounce:
			debounce = nil
			s.reload(logger)
		}
	}
}

func (s *Session) reload(logger *zap.Logger) {
	creds, err := readCredentials(s.path)
	if err != nil {
		logger.Warn("credentials reload skipped", zap.String("path", s.path), zap.Error(err))
		return
	}
	resolved, err := resolveIdentity(creds)
	if err != nil {
		logger.Warn("credentials reload rejected", zap.String("path", s.path), zap.Error(err))
		return
	}
	if resolved.UserID != s.UserID() {
		logger.Warn("credentials belong to another user; restart to switch accounts",
			zap.String("current", s.UserID()), zap.String("new", resolved.UserID))
		return
	}
	s.replace(resolved)
	logger.Info("credentials reloaded", zap.String("path", s.path))
}
