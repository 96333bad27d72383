package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/d-led/iiwsit/pkg/decision"
)

// Watch calls onChange with the reloaded settings each time the settings
// file changes, until ctx is cancelled. Bursts of writes within the
// debounce period collapse into one reload of the latest contents.
//
// A file that fails to parse or validate is logged and skipped, and the
// previous settings stay in effect. Removing the file reports the defaults.
func (s *Store) Watch(ctx context.Context, onChange func(decision.Params)) error {
	watcher, err := s.watcher()
	if err != nil {
		return err
	}
	defer watcher.Close() //nolint:errcheck // nothing to do on close failure

	return s.watchLoop(ctx, watcher, onChange)
}

// watcher watches the directory rather than the file: the file may not exist
// yet, and atomic saves replace it.
func (s *Store) watcher() (*fsnotify.Watcher, error) {
	if err := ensureDir(s.dir); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close() //nolint:errcheck // add error takes precedence
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}
	s.logger.Info("Watching settings for changes", "path", s.Path())
	return watcher, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func(decision.Params)) error {
	target := filepath.Clean(s.Path())

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Last write wins: every event restarts the quiet period.
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			p, err := s.read()
			if err != nil {
				s.logger.WarnContext(ctx, "Settings reload failed, keeping previous settings", errorKey, err)
				continue
			}
			if err := decision.Validate(p); err != nil {
				s.logger.WarnContext(ctx, "Reloaded settings are invalid, keeping previous settings", errorKey, err)
				continue
			}
			s.logger.InfoContext(ctx, "Settings reloaded", "path", target)
			onChange(p)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.ErrorContext(ctx, "Settings watcher error", errorKey, err)
		}
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	return nil
}
