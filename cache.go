// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"sync"
	"time"
)

// CacheEntry represents a single memoized load
type CacheEntry struct {
	Data     *RawData
	CachedAt time.Time
}

// inflight tracks a load that other callers can wait on
type inflight struct {
	done chan struct{}
	data *RawData
	err  error
}

// Cache memoizes raw source loads for the life of the process.
// Entries never expire; only successful loads are stored.
type Cache struct {
	entries map[string]*CacheEntry
	pending map[string]*inflight
	mutex   sync.Mutex
	logger  *Logger
}

// NewCache creates an empty in-memory cache
func NewCache(logger *Logger) *Cache {
	return &Cache{
		entries: make(map[string]*CacheEntry),
		pending: make(map[string]*inflight),
		logger:  logger,
	}
}

// GetOrLoad returns the cached value for key, running load on a miss.
// Concurrent callers for the same key share one load, which ignores caller
// cancellation. Each caller still returns when its own ctx ends.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (*RawData, error)) (*RawData, error) {
	c.mutex.Lock()
	if entry, ok := c.entries[key]; ok {
		c.mutex.Unlock()
		IncCacheHit()
		c.logger.LogCacheHit(key, time.Since(entry.CachedAt))
		return entry.Data, nil
	}

	call, ok := c.pending[key]
	if !ok {
		call = &inflight{done: make(chan struct{})}
		c.pending[key] = call
		IncCacheMiss()
		c.logger.Debug("Cache miss", "key", key)
		go c.run(context.WithoutCancel(ctx), key, call, load)
	}
	c.mutex.Unlock()

	select {
	case <-call.done:
		return call.data, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run performs one shared load and publishes its result
func (c *Cache) run(ctx context.Context, key string, call *inflight, load func(context.Context) (*RawData, error)) {
	call.data, call.err = load(ctx)

	c.mutex.Lock()
	delete(c.pending, key)
	if call.err == nil {
		c.entries[key] = &CacheEntry{Data: call.data, CachedAt: time.Now()}
	} else {
		c.logger.Warn("Shared load failed", "key", key, "error", call.err)
	}
	c.mutex.Unlock()
	close(call.done)
}

// Get retrieves a cached value without loading
func (c *Cache) Get(key string) (*RawData, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Data, true
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}
