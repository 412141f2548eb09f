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

package cache

import (
	"testing"
	"time"

	qsql "querysync/internal/sql"
)

func newTestCache(maxEntries int) *ParseCache {
	return New(Config{
		MaxEntries: maxEntries,
		TTL:        1 * time.Minute,
		Enabled:    true,
	})
}

func TestParseCacheBasic(t *testing.T) {
	pc := newTestCache(100)
	defer pc.Close()

	first, hit, err := pc.Parse("SELECT a FROM users WHERE a > 5")
	if err != nil || hit {
		t.Fatalf("Parse failed: %v", err)
	}
	if first.Query.From != "users" {
		t.Errorf("Expected table users, got %s", first.Query.From)
	}

	// Different spacing and a comment normalize to the same key.
	second, hit, err := pc.Parse("SELECT  a\nFROM users -- note\nWHERE a > 5")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !hit {
		t.Error("Expected second parse to hit the cache")
	}
	if second.Query.From != "users" || len(second.Query.Where) != 1 {
		t.Errorf("Unexpected cached model: %+v", second.Query)
	}

	stats := pc.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d/%d", stats.Hits, stats.Misses)
	}
	if stats.Entries != 1 {
		t.Errorf("Expected 1 entry, got %d", stats.Entries)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %f", stats.HitRate)
	}
}

func TestParseCacheErrorsNotCached(t *testing.T) {
	pc := newTestCache(100)
	defer pc.Close()

	for i := 0; i < 2; i++ {
		if _, _, err := pc.Parse("DELETE FROM users"); err == nil {
			t.Fatal("Expected unsupported statement error")
		}
	}
	if stats := pc.Stats(); stats.Entries != 0 || stats.Hits != 0 {
		t.Errorf("Expected no cached entries, got %+v", stats)
	}
}

func TestParseCacheReturnsCopies(t *testing.T) {
	pc := newTestCache(100)
	defer pc.Close()

	result, _, err := pc.Parse("SELECT a FROM t")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	result.Query.From = "changed"
	result.Query.Select[0].Name = "changed"

	again, _, _ := pc.Parse("SELECT a FROM t")
	if again.Query.From != "t" || again.Query.Select[0].Name != "a" {
		t.Errorf("Cached result was mutated: %+v", again.Query)
	}
}

func TestParseCacheLRUEviction(t *testing.T) {
	pc := newTestCache(2)
	defer pc.Close()

	pc.Set("a", &qsql.ParseResult{Query: qsql.NewQuery()})
	pc.Set("b", &qsql.ParseResult{Query: qsql.NewQuery()})

	// Touch "a" so "b" becomes the oldest.
	if _, ok := pc.Get("a"); !ok {
		t.Fatal("Expected cache hit for a")
	}

	pc.Set("c", &qsql.ParseResult{Query: qsql.NewQuery()})

	if _, ok := pc.Get("b"); ok {
		t.Error("Expected b to be evicted")
	}
	if _, ok := pc.Get("a"); !ok {
		t.Error("Expected a to survive eviction")
	}
	if _, ok := pc.Get("c"); !ok {
		t.Error("Expected c to be cached")
	}
	if stats := pc.Stats(); stats.Evictions != 1 || stats.Entries != 2 {
		t.Errorf("Expected 1 eviction and 2 entries, got %+v", stats)
	}
}

func TestParseCacheTTLExpiration(t *testing.T) {
	pc := New(Config{MaxEntries: 10, TTL: 50 * time.Millisecond, Enabled: true})
	defer pc.Close()

	pc.Set("k", &qsql.ParseResult{Query: qsql.NewQuery()})
	if _, ok := pc.Get("k"); !ok {
		t.Fatal("Expected cache hit before expiry")
	}

	time.Sleep(150 * time.Millisecond)
	if _, ok := pc.Get("k"); ok {
		t.Error("Expected cache miss after expiry")
	}
	if stats := pc.Stats(); stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %+v", stats)
	}
}

func TestParseCacheDisabled(t *testing.T) {
	pc := New(Config{MaxEntries: 10, TTL: time.Minute, Enabled: false})
	defer pc.Close()

	if _, _, err := pc.Parse("SELECT a FROM t"); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, _, err := pc.Parse("SELECT a FROM t"); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if stats := pc.Stats(); stats.Entries != 0 || stats.Hits != 0 {
		t.Errorf("Expected disabled cache to stay empty, got %+v", stats)
	}
	if pc.Enabled() {
		t.Error("Expected Enabled() to be false")
	}
}

func TestParseCacheInvalidateAllAndClose(t *testing.T) {
	pc := newTestCache(10)

	pc.Set("a", &qsql.ParseResult{Query: qsql.NewQuery()})
	pc.InvalidateAll()
	if _, ok := pc.Get("a"); ok {
		t.Error("Expected empty cache after InvalidateAll")
	}

	pc.Close()
	pc.Close()
}
