// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collect

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReportHandler receives each report produced by Watch, together with the
// error Collect returned for it.
type ReportHandler func(report *Report, err error)

// Watch collects root once, then again whenever result files change.
//
// Description:
//
//	Watches root and all of its sub-directories. Create, write, remove and
//	rename events on matching files, and newly created directories, start a
//	debounce window; when it expires without further events the tree is
//	collected again and handed to onReport. Directories created while
//	watching are added to the watch list.
//
// Inputs:
//   - ctx: Stops the watch when done. Must not be nil.
//   - root: Directory to watch.
//   - onReport: Called from the watch goroutine, one call at a time.
//
// Outputs:
//   - error: Non-nil if the watcher cannot be started or fails. Nil when
//     ctx is done.
func (c *Collector) Watch(ctx context.Context, root string, onReport ReportHandler) error {
	if ctx == nil {
		return errors.New("context must not be nil")
	}
	if onReport == nil {
		return errors.New("report handler must not be nil")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	onReport(c.Collect(ctx, root))

	var timer *time.Timer
	var timerC <-chan time.Time
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
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := addRecursive(watcher, event.Name); err != nil {
					c.logger.Warn("cannot watch directory",
						slog.String("path", event.Name),
						slog.String("error", err.Error()),
					)
				}
			} else if !c.matches(event.Name) || !relevant(event.Op) {
				continue
			}

			c.logger.Debug("result change", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(c.debounce)
				timerC = timer.C
			} else {
				timer.Reset(c.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			onReport(c.Collect(ctx, root))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Write) ||
		op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
