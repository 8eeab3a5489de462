// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package archive keeps a history of benchmark runs in BadgerDB.
//
// Each run is stored once under a key ordered by system and start time,
// plus an index key by run ID:
//
//	run/{system}/{started_at_unix_nano}/{run_id} -> JSON results.Set
//	id/{run_id}                                  -> run key
//
// Start times are zero padded so lexical key order is chronological.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/dgraph-io/badger/v4"
)

var (
	// ErrNotFound is returned when no run matches.
	ErrNotFound = errors.New("run not found")

	// ErrDuplicateRun is returned when a run ID is saved twice.
	ErrDuplicateRun = errors.New("run already archived")

	// ErrInvalidSet is returned for a set that cannot be keyed.
	ErrInvalidSet = errors.New("invalid result set")
)

const (
	runPrefix = "run/"
	idPrefix  = "id/"
)

// Config holds configuration for an Archive.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is
	// true.
	Path string

	// InMemory keeps the archive in memory only. Used by tests.
	InMemory bool

	// SyncWrites enables synchronous writes.
	SyncWrites bool

	// Logger receives BadgerDB's own log output. If nil, it is discarded.
	Logger *slog.Logger

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum discardable fraction that triggers GC.
	GCDiscardRatio float64
}

// DefaultConfig returns a persistent configuration for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Summary describes an archived run without its rows.
type Summary struct {
	RunID     string
	System    string
	StartedAt time.Time
	Rows      int
}

// Archive is a run history backed by BadgerDB.
//
// Thread Safety: Safe for concurrent use.
type Archive struct {
	db       *badger.DB
	gcRunner *gcRunner
	path     string
}

// Open opens or creates an archive.
//
// Outputs:
//   - *Archive: Call Close when done.
//   - error: Non-nil if the path is missing or the database cannot be
//     opened.
func Open(cfg Config) (*Archive, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent archive")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create archive directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	a := &Archive{db: db, path: cfg.Path}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		a.gcRunner = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		a.gcRunner.start()
	}
	return a, nil
}

// Close stops garbage collection and closes the database.
func (a *Archive) Close() error {
	if a.gcRunner != nil {
		a.gcRunner.stop()
	}
	return a.db.Close()
}

// Save stores set.
//
// Outputs:
//   - error: ErrInvalidSet if RunID or System is empty or System contains
//     "/", ErrDuplicateRun if the run ID exists.
func (a *Archive) Save(ctx context.Context, set results.Set) error {
	if set.RunID == "" || set.System == "" || strings.Contains(set.System, "/") {
		return fmt.Errorf("%w: run id %q, system %q", ErrInvalidSet, set.RunID, set.System)
	}

	value, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", set.RunID, err)
	}
	key := runKey(set.System, set.StartedAt, set.RunID)

	return a.withTxn(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(idKey(set.RunID))
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", ErrDuplicateRun, set.RunID)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(idKey(set.RunID), key)
	})
}

// Get returns the run with runID.
func (a *Archive) Get(ctx context.Context, runID string) (results.Set, error) {
	var set results.Set
	err := a.withReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(runID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(key)
		if err != nil {
			return fmt.Errorf("run %s: dangling index: %w", runID, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &set)
		})
	})
	return set, err
}

// List returns archived runs newest first. An empty system lists every
// system. limit <= 0 returns all matches.
func (a *Archive) List(ctx context.Context, system string, limit int) ([]Summary, error) {
	var out []Summary
	err := a.scan(ctx, system, func(set results.Set, _ []byte) bool {
		out = append(out, Summary{
			RunID:     set.RunID,
			System:    set.System,
			StartedAt: set.StartedAt,
			Rows:      len(set.Rows),
		})
		return limit <= 0 || len(out) < limit
	})
	return out, err
}

// Latest returns the newest run of system.
func (a *Archive) Latest(ctx context.Context, system string) (results.Set, error) {
	var latest *results.Set
	err := a.scan(ctx, system, func(set results.Set, _ []byte) bool {
		latest = &set
		return false
	})
	if err != nil {
		return results.Set{}, err
	}
	if latest == nil {
		return results.Set{}, fmt.Errorf("%w: no runs for system %q", ErrNotFound, system)
	}
	return *latest, nil
}

// Prune keeps the newest keep runs of every system and deletes the rest.
// It returns the number of deleted runs.
func (a *Archive) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, errors.New("keep must not be negative")
	}

	seen := make(map[string]int)
	var doomed [][]byte
	var ids []string
	err := a.scan(ctx, "", func(set results.Set, key []byte) bool {
		seen[set.System]++
		if seen[set.System] > keep {
			doomed = append(doomed, key)
			ids = append(ids, set.RunID)
		}
		return true
	})
	if err != nil || len(doomed) == 0 {
		return 0, err
	}

	err = a.withTxn(ctx, func(txn *badger.Txn) error {
		for i, key := range doomed {
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Delete(idKey(ids[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning archive: %w", err)
	}
	return len(doomed), nil
}

// scan visits runs newest first within each system until fn returns false.
// With an empty system, systems are visited in reverse lexical order.
func (a *Archive) scan(ctx context.Context, system string, fn func(set results.Set, key []byte) bool) error {
	prefix := []byte(runPrefix)
	if system != "" {
		prefix = []byte(runPrefix + system + "/")
	}

	return a.withReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var set results.Set
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &set)
			}); err != nil {
				return fmt.Errorf("decoding %s: %w", item.Key(), err)
			}
			if !fn(set, item.KeyCopy(nil)) {
				return nil
			}
		}
		return nil
	})
}

func (a *Archive) withTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	txn := a.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

func (a *Archive) withReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	txn := a.db.NewTransaction(false)
	defer txn.Discard()
	return fn(txn)
}

func runKey(system string, startedAt time.Time, runID string) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%s", runPrefix, system, startedAt.UnixNano(), runID))
}

func idKey(runID string) []byte {
	return []byte(idPrefix + runID)
}
