package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher dispatches newly delivered implementation directories
type Watcher struct {
	logger      *zap.Logger
	impsDir     string
	settleDelay time.Duration
	onArrival   func(implID string)

	fsWatcher *fsnotify.Watcher
}

// New creates a watcher over the implementations directory. The settle
// delay gives the orchestrator time to finish copying an implementation
// before it is evaluated.
func New(logger *zap.Logger, impsDir string, settleDelay time.Duration, onArrival func(implID string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}

	if err := fsWatcher.Add(impsDir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", impsDir, err)
	}

	return &Watcher{
		logger:      logger,
		impsDir:     impsDir,
		settleDelay: settleDelay,
		onArrival:   onArrival,
		fsWatcher:   fsWatcher,
	}, nil
}

// Run blocks dispatching arrivals until the context is canceled. Each
// arrival is handed off on its own settle timer, so the event loop keeps
// draining fsnotify events while earlier implementations are still being
// evaluated.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsWatcher.Close()

	w.logger.Info("watching for implementations", zap.String("dir", w.impsDir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || !info.IsDir() {
				continue
			}

			implID := filepath.Base(event.Name)
			w.logger.Info("implementation arrived", zap.String("implementation", implID))

			// Let the copy settle before evaluating.
			time.AfterFunc(w.settleDelay, func() {
				if ctx.Err() != nil {
					return
				}
				w.onArrival(implID)
			})

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}
