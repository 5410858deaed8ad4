// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package closurecache caches the universal class hierarchy and type
// dictionary built for one dependency-coordinate set, keyed by the FNV-1a
// hash of that set's canonical, sorted coordinate strings. Concurrent merges
// over an identical closure share one build via singleflight; a bounded LRU
// evicts the least-recently-used entry that is not currently in use.
package closurecache

import (
	"container/list"
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/chamerge/internal/cha"
	"github.com/AleutianAI/chamerge/internal/coordinate"
	"github.com/AleutianAI/chamerge/internal/store/badgerkv"
	"github.com/AleutianAI/chamerge/internal/typedict"
)

// BuildFunc builds the universal hierarchy and type dictionary for one
// dependency closure.
type BuildFunc func(ctx context.Context) (*cha.Hierarchy, *typedict.Dictionary, error)

// Key derives the closure cache key for a set of dependency coordinates: the
// FNV-1a hash of the coordinates' canonical strings, sorted so discovery
// order never changes the key.
func Key(coordinates []string) (uint64, error) {
	parsed, err := coordinate.ParseAll(coordinates)
	if err != nil {
		return 0, fmt.Errorf("closurecache: %w", err)
	}
	coordinate.Sort(parsed)

	h := fnv.New64a()
	for _, c := range parsed {
		h.Write([]byte(c.String()))
		h.Write([]byte{0})
	}
	return h.Sum64(), nil
}

type entry struct {
	key        uint64
	hierarchy  *cha.Hierarchy
	dict       *typedict.Dictionary
	builtAt    time.Time
	refs       int
	lruElement *list.Element
}

// Cache is a bounded, singleflight-deduplicated closure cache. The zero value
// is not usable; construct with New.
type Cache struct {
	mu         sync.Mutex
	entries    map[uint64]*entry
	lru        *list.List
	maxEntries int
	flight     singleflight.Group

	persist *badgerkv.DB // optional build-manifest persistence
}

// New returns an empty Cache holding at most maxEntries concurrently-unused
// closures.
func New(maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[uint64]*entry),
		lru:        list.New(),
		maxEntries: maxEntries,
	}
}

// WithPersistence attaches a badger-backed manifest recording when each key
// was last built. The hierarchy and type dictionary objects themselves are
// never serialized — a cold start after a restart simply rebuilds them from
// the dependency store — so persistence here only answers "was this closure
// built recently", useful for a watch-mode skip-if-fresh decision.
func (c *Cache) WithPersistence(db *badgerkv.DB) *Cache {
	c.persist = db
	return c
}

// Len reports the number of closures currently held in the cache, used by
// the CLI's "cache stats" subcommand.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrBuild returns the cached hierarchy and dictionary for coordinates,
// building them via build on a miss. Concurrent calls for the same key share
// one build. The returned release func must be called once the caller is
// done using the result, so the entry becomes eligible for eviction.
func (c *Cache) GetOrBuild(ctx context.Context, coordinates []string, build BuildFunc) (*cha.Hierarchy, *typedict.Dictionary, func(), error) {
	key, err := Key(coordinates)
	if err != nil {
		return nil, nil, nil, err
	}

	// Every caller — whether it triggers the build, shares an in-flight one,
	// or hits a warm cache — acquires its own reference below, after the
	// entry is known to exist. Incrementing refs inside the singleflight
	// closure would only count the one caller that actually ran it, leaving
	// every other sharer's eventual release to under-flow the count.
	if e, ok := c.lookup(key); ok {
		return e.hierarchy, e.dict, c.acquireAndRelease(e), nil
	}

	result, err, _ := c.flight.Do(strconv.FormatUint(key, 16), func() (interface{}, error) {
		if e, ok := c.lookup(key); ok {
			return e, nil
		}

		hierarchy, dict, err := build(ctx)
		if err != nil {
			return nil, err
		}

		e := &entry{key: key, hierarchy: hierarchy, dict: dict, builtAt: time.Now()}
		c.store(e)
		if c.persist != nil {
			_ = c.recordBuilt(ctx, key, e.builtAt)
		}
		return e, nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	e := result.(*entry)
	return e.hierarchy, e.dict, c.acquireAndRelease(e), nil
}

// lookup returns the cached entry for key without acquiring a reference.
func (c *Cache) lookup(key uint64) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(e.lruElement)
	return e, true
}

// acquireAndRelease increments e's reference count and returns the matching
// release func.
func (c *Cache) acquireAndRelease(e *entry) func() {
	c.mu.Lock()
	e.refs++
	c.mu.Unlock()
	return c.releaseFunc(e.key)
}

func (c *Cache) releaseFunc(key uint64) func() {
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		e, ok := c.entries[key]
		if !ok {
			return
		}
		e.refs--
		c.evictIfNeeded()
	}
}

func (c *Cache) store(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.lruElement = c.lru.PushFront(e.key)
	c.entries[e.key] = e
	c.evictIfNeeded()
}

// evictIfNeeded drops least-recently-used, unreferenced entries until the
// cache is within maxEntries. Called with c.mu held.
func (c *Cache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}
	for len(c.entries) > c.maxEntries {
		victim := c.lru.Back()
		for victim != nil {
			key := victim.Value.(uint64)
			if e := c.entries[key]; e != nil && e.refs == 0 {
				c.lru.Remove(victim)
				delete(c.entries, key)
				break
			}
			victim = victim.Prev()
		}
		if victim == nil {
			return // every remaining entry is in use
		}
	}
}

var manifestBucket = []byte("closurecache:built:")

// recordBuilt writes key's last-built timestamp to the persistence manifest.
func (c *Cache) recordBuilt(ctx context.Context, key uint64, at time.Time) error {
	return c.persist.WithTxn(ctx, func(txn *badger.Txn) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(at.UnixNano()))
		return txn.Set(manifestKey(key), buf)
	})
}

// LastBuiltAt reports when key was last built, per the persistence manifest.
// Returns ok=false if no persistence is attached or the key has never been
// recorded.
func (c *Cache) LastBuiltAt(ctx context.Context, coordinates []string) (time.Time, bool, error) {
	if c.persist == nil {
		return time.Time{}, false, nil
	}
	key, err := Key(coordinates)
	if err != nil {
		return time.Time{}, false, err
	}

	var at time.Time
	found := false
	err = c.persist.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(manifestKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			at = time.Unix(0, int64(binary.BigEndian.Uint64(val)))
			found = true
			return nil
		})
	})
	return at, found, err
}

func manifestKey(key uint64) []byte {
	return append(append([]byte{}, manifestBucket...), []byte(strconv.FormatUint(key, 16))...)
}
