// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badgerkv wraps dgraph-io/badger for the closure cache's on-disk
// build manifest: the time each dependency-coordinate set was last built,
// keyed by the FNV-1a hash of that set's sorted canonical string. The
// CHA/TypeDictionary builds themselves are not stored.
package badgerkv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config controls how a database is opened.
type Config struct {
	// InMemory opens a transient database backed by no disk files, used by
	// tests.
	InMemory bool
	// Path is the directory for persistent storage. Required unless InMemory.
	Path string
	// SyncWrites forces an fsync on every commit. Off by default for
	// in-memory mode, on by default for persistent mode.
	SyncWrites bool
	// NumVersionsToKeep bounds how many versions of a key badger retains.
	// The closure cache only ever needs the latest, so this defaults to 1.
	NumVersionsToKeep int
	// GCInterval is a value-log GC interval for callers to pass to
	// NewGCRunner; Open and OpenDB do not read it and start no GC.
	GCInterval time.Duration
}

// DefaultConfig is the persistent-mode default.
func DefaultConfig() Config {
	return Config{
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
	}
}

// InMemoryConfig is the transient-mode default.
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		NumVersionsToKeep: 1,
	}
}

// Open opens a badger database per cfg.
func Open(cfg Config) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badgerkv: path is required for persistent mode")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(cfg.NumVersionsToKeep).
		WithLogger(nil)

	return badger.Open(opts)
}

// OpenInMemory opens a transient database with InMemoryConfig.
func OpenInMemory() (*badger.DB, error) {
	return Open(InMemoryConfig())
}

// OpenWithPath opens a persistent database at path with DefaultConfig.
func OpenWithPath(path string) (*badger.DB, error) {
	cfg := DefaultConfig()
	cfg.Path = path
	return Open(cfg)
}

// DB is a managed badger handle offering context-aware transaction helpers,
// used by the closure cache so a cancelled merge does not block on a stuck
// transaction.
type DB struct {
	db  *badger.DB
	cfg Config
}

// OpenDB opens a managed DB per cfg.
func OpenDB(cfg Config) (*DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return &DB{db: db, cfg: cfg}, nil
}

// Close releases the underlying badger database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Raw returns the underlying *badger.DB, for callers that need to attach a
// GCRunner or otherwise operate outside the WithTxn/WithReadTxn helpers.
func (d *DB) Raw() *badger.DB {
	return d.db
}

// WithTxn runs fn inside a read-write transaction, checking ctx before
// starting. A non-nil error from fn rolls the transaction back.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("badgerkv: context cancelled: %w", err)
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction, checking ctx before
// starting.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("badgerkv: context cancelled: %w", err)
	}
	return d.db.View(fn)
}

// GCRunner periodically reclaims value-log space on a ticker goroutine,
// stopped on Stop. Neither the closure cache nor the CLI starts one.
type GCRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	logger   *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewGCRunner validates its arguments and returns a stopped GCRunner; call
// Start to begin the ticker goroutine.
func NewGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger *slog.Logger) (*GCRunner, error) {
	if db == nil {
		return nil, fmt.Errorf("badgerkv: db must not be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("badgerkv: interval must be positive")
	}
	if ratio <= 0 || ratio > 1 {
		return nil, fmt.Errorf("badgerkv: ratio must be between 0 and 1")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCRunner{db: db, interval: interval, ratio: ratio, logger: logger, stop: make(chan struct{})}, nil
}

// Start launches the GC ticker goroutine. Safe to call at most once.
func (r *GCRunner) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.runOnce()
			case <-r.stop:
				return
			}
		}
	}()
}

// runOnce drains RunValueLogGC until it reports no more reclaimable space.
func (r *GCRunner) runOnce() {
	for {
		if err := r.db.RunValueLogGC(r.ratio); err != nil {
			if err != badger.ErrNoRewrite {
				r.logger.Warn("closure cache value log GC failed", "error", err)
			}
			return
		}
	}
}

// Stop signals the ticker goroutine to exit and waits for it to do so.
func (r *GCRunner) Stop() {
	close(r.stop)
	r.wg.Wait()
}

// TempDir creates a fresh temporary directory for a persistent test database.
func TempDir(prefix string) (string, error) {
	return os.MkdirTemp("", prefix)
}

// CleanupDir removes a directory created by TempDir. A no-op on an empty path.
func CleanupDir(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(path)
}
