package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openfroyo/plangraph/pkg/telemetry"
)

// DefaultWatchDebounce is how long Watch waits for a burst of file events to settle.
const DefaultWatchDebounce = 200 * time.Millisecond

// WithDebounce sets the delay Watch waits after a change before reloading.
func WithDebounce(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.debounce = d
	}
}

// Watch loads the problem at path and calls onLoad with it, then reloads and
// calls onLoad again every time the file changes, until ctx is done.
//
// The first load must succeed. Later load or onLoad failures are logged and
// watching continues, so a half-saved file does not stop the loop. The
// parent directory is watched because editors often replace files on save.
func (l *Loader) Watch(ctx context.Context, path string, onLoad func(context.Context, *LoadedProblem) error) error {
	logger := telemetry.FromContext(ctx).WithField("file", path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	loaded, err := l.Load(ctx, path)
	if err != nil {
		return err
	}
	if err := onLoad(ctx, loaded); err != nil {
		return err
	}

	delay := l.debounce
	if delay <= 0 {
		delay = DefaultWatchDebounce
	}

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
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
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			logger.WithField("op", event.Op.String()).Debug("Problem file changed")

			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			reload = timer.C

		case <-reload:
			reload = nil

			loaded, err := l.Load(ctx, path)
			if err != nil {
				logger.WithError(err).Error("Failed to reload problem")
				continue
			}
			if err := onLoad(ctx, loaded); err != nil {
				logger.WithError(err).Error("Failed to apply reloaded problem")
				continue
			}
			logger.WithProblem(loaded.Problem.Name, loaded.Problem.Digest()).Info("Problem reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Error("Watcher error")
		}
	}
}
