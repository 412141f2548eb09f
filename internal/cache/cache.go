/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package cache provides parse result caching for the querysync API.

Parse Cache Overview:
=====================

An editor sends the same SELECT text many times while the user works on
other parts of the page. The parse cache keeps the model and diagnostics
for recently parsed text so those requests skip the parser.

Features:
=========

  - Keys are normalized SQL, so whitespace and comment edits still hit
  - LRU eviction when the cache is full
  - TTL-based expiration (golang-lru's expirable LRU)
  - Callers get a private copy of every cached result
  - Thread-safe operations

Only successful parses are cached. Text that fails with an unsupported
statement error is parsed again on every request.

Usage Example:
==============

	pc := cache.New(cache.Config{
		MaxEntries: 512,
		TTL:        5 * time.Minute,
		Enabled:    true,
	})
	defer pc.Close()

	result, hit, err := pc.Parse(text)
*/
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	qsql "querysync/internal/sql"
)

// Config holds the configuration for the parse cache.
type Config struct {
	// MaxEntries is the maximum number of cached parse results.
	// When exceeded, the least recently used entries are evicted.
	MaxEntries int

	// TTL is the time-to-live for cached entries.
	TTL time.Duration

	// Enabled controls whether caching is active.
	Enabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 512,
		TTL:        5 * time.Minute,
		Enabled:    true,
	}
}

// ParseCache caches parse results with LRU eviction and TTL expiration.
type ParseCache struct {
	config Config
	lru    *expirable.LRU[string, *qsql.ParseResult]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a ParseCache. A disabled cache stores nothing.
func New(config Config) *ParseCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 512
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}

	pc := &ParseCache{config: config}
	if config.Enabled {
		pc.lru = expirable.NewLRU[string, *qsql.ParseResult](config.MaxEntries, nil, config.TTL)
	}
	return pc
}

// Key returns the cache key for SQL text.
func Key(text string) string {
	return qsql.Normalize(text)
}

// Parse returns the cached result for text, parsing and storing it on a
// miss. hit reports whether the result came from the cache.
func (pc *ParseCache) Parse(text string) (result *qsql.ParseResult, hit bool, err error) {
	key := Key(text)
	if result, ok := pc.Get(key); ok {
		return result, true, nil
	}

	result, err = qsql.ParseWithDiagnostics(text)
	if err != nil {
		return nil, false, err
	}
	pc.Set(key, result)
	return result, false, nil
}

// Get returns a copy of the cached result for a normalized key. Expired
// entries count as misses.
func (pc *ParseCache) Get(key string) (*qsql.ParseResult, bool) {
	if pc.lru == nil {
		return nil, false
	}

	result, ok := pc.lru.Get(key)
	if !ok {
		pc.misses.Add(1)
		return nil, false
	}
	pc.hits.Add(1)
	return copyResult(result), true
}

// Set stores a copy of result under a normalized key.
func (pc *ParseCache) Set(key string, result *qsql.ParseResult) {
	if pc.lru == nil || result == nil {
		return
	}
	if evicted := pc.lru.Add(key, copyResult(result)); evicted {
		pc.evictions.Add(1)
	}
}

// InvalidateAll clears the cache.
func (pc *ParseCache) InvalidateAll() {
	if pc.lru != nil {
		pc.lru.Purge()
	}
}

// Close drops every entry. It is safe to call more than once.
func (pc *ParseCache) Close() {
	pc.InvalidateAll()
}

func copyResult(r *qsql.ParseResult) *qsql.ParseResult {
	diags := make([]qsql.Diagnostic, len(r.Diagnostics))
	copy(diags, r.Diagnostics)
	return &qsql.ParseResult{Query: r.Query.Clone(), Diagnostics: diags}
}

// Stats holds cache statistics.
type Stats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Evictions  int64   `json:"evictions"`
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	HitRate    float64 `json:"hit_rate"`
}

// Stats returns current cache statistics.
func (pc *ParseCache) Stats() Stats {
	hits, misses := pc.hits.Load(), pc.misses.Load()
	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	entries := 0
	if pc.lru != nil {
		entries = pc.lru.Len()
	}
	return Stats{
		Hits:       hits,
		Misses:     misses,
		Evictions:  pc.evictions.Load(),
		Entries:    entries,
		MaxEntries: pc.config.MaxEntries,
		HitRate:    hitRate,
	}
}

// Enabled reports whether the cache is active.
func (pc *ParseCache) Enabled() bool {
	return pc.config.Enabled
}
