// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runlock keeps two benchmark runs from writing the same result
// file at once.
//
// A lock is an advisory, non-blocking exclusive lock on "<output>.lock".
// The lock file carries a JSON description of its holder so a refused run
// can say who holds it. The operating system drops the lock when the
// holding process exits, so a crashed run never blocks the next one.
package runlock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Suffix is appended to the guarded path to form the lock file name.
const Suffix = ".lock"

var (
	// ErrLocked indicates another process holds the lock.
	ErrLocked = errors.New("result file is locked by another run")

	// ErrReleased indicates Release was called twice.
	ErrReleased = errors.New("lock already released")
)

// Info describes a lock holder.
type Info struct {
	Path     string    `json:"path"`
	PID      int       `json:"pid"`
	Host     string    `json:"host,omitempty"`
	RunID    string    `json:"run_id"`
	LockedAt time.Time `json:"locked_at"`
}

// LockedError is returned when the lock is held elsewhere. Holder is nil
// when the lock file could not be read.
type LockedError struct {
	Path   string
	Holder *Info
}

// Error returns a human-readable error message.
func (e *LockedError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("%s is being written by run %s (pid %d) since %s",
			e.Path, e.Holder.RunID, e.Holder.PID, e.Holder.LockedAt.Format("15:04:05"))
	}
	return fmt.Sprintf("%s: %v", e.Path, ErrLocked)
}

// Unwrap returns ErrLocked for errors.Is support.
func (e *LockedError) Unwrap() error { return ErrLocked }

// Lock is a held run lock.
//
// Thread Safety: Not safe for concurrent use.
type Lock struct {
	file   *os.File
	path   string
	info   Info
	logger *slog.Logger
}

// Acquire locks path for runID without blocking.
//
// Description:
//
//	Creates the parent directory and the lock file as needed, takes the
//	OS lock, then records the holder. The guarded file itself is never
//	opened.
//
// Outputs:
//   - *Lock: Call Release when the result file is written.
//   - error: *LockedError (matching ErrLocked) if another process holds
//     the lock, other errors on filesystem failure.
func Acquire(path, runID string, logger *slog.Logger) (*Lock, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", abs, err)
	}

	lockPath := abs + Suffix
	f, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", lockPath, err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		if errors.Is(err, ErrLocked) {
			return nil, &LockedError{Path: abs, Holder: readHolder(lockPath)}
		}
		return nil, fmt.Errorf("acquiring lock on %s: %w", lockPath, err)
	}

	host, _ := os.Hostname()
	l := &Lock{
		file:   f,
		path:   lockPath,
		logger: logger,
		info: Info{
			Path:     abs,
			PID:      os.Getpid(),
			Host:     host,
			RunID:    runID,
			LockedAt: time.Now().UTC(),
		},
	}
	if err := l.writeInfo(); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("writing lock info: %w", err)
	}

	logger.Debug("acquired run lock", "path", abs, "run_id", runID)
	return l, nil
}

// Info returns the holder description written by this lock.
func (l *Lock) Info() Info { return l.info }

// Release clears the holder description and unlocks. The lock file stays
// in place; unlinking it would let two runs lock different inodes.
func (l *Lock) Release() error {
	if l.file == nil {
		return ErrReleased
	}
	if err := l.file.Truncate(0); err != nil {
		l.logger.Warn("failed to clear lock file", "path", l.path, "error", err)
	}
	err := unlockFile(l.file)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	l.logger.Debug("released run lock", "path", l.info.Path)
	return err
}

func (l *Lock) writeInfo() error {
	data, err := json.MarshalIndent(l.info, "", "  ")
	if err != nil {
		return err
	}
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = l.file.Write(data)
	return err
}

// Holder returns the live holder of the lock on path, or nil when the
// path is unlocked or its last holder has exited.
func Holder(path string) (*Info, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", path, err)
	}
	info := readHolder(abs + Suffix)
	if info == nil || !IsProcessAlive(info.PID) {
		return nil, nil
	}
	return info, nil
}

func readHolder(lockPath string) *Info {
	data, err := os.ReadFile(lockPath)
	if err != nil || len(data) == 0 {
		return nil
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}
	return &info
}

// IsProcessAlive reports whether a process with pid exists.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return isProcessAlive(pid)
}
