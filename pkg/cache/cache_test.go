package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	// Miss before Set
	if _, hit, err := c.Get(ctx, "layout"); err != nil || hit {
		t.Errorf("empty cache should miss: hit=%v err=%v", hit, err)
	}

	// Set then hit
	if err := c.Set(ctx, "layout", []byte("BYB/YBY/BYB"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "layout")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !hit || string(data) != "BYB/YBY/BYB" {
		t.Errorf("Get = %q, %v; want stored layout, true", data, hit)
	}

	// Callers must not be able to mutate the stored copy
	data[0] = 'X'
	again, _, _ := c.Get(ctx, "layout")
	if string(again) != "BYB/YBY/BYB" {
		t.Error("Get should return a copy of the stored data")
	}

	// Delete then miss
	if err := c.Delete(ctx, "layout"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "layout"); hit {
		t.Error("deleted entry should miss")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	if err := c.Set(ctx, "stale", []byte("old"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	// Backdate the entry instead of sleeping through a real TTL.
	c.mu.Lock()
	e := c.entries["stale"]
	e.expiresAt = time.Now().Add(-time.Minute)
	c.entries["stale"] = e
	c.mu.Unlock()

	if _, hit, err := c.Get(ctx, "stale"); err != nil || hit {
		t.Errorf("expired entry should miss: hit=%v err=%v", hit, err)
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be evicted on read, Len = %d", c.Len())
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	// Miss before Set
	if _, hit, err := c.Get(ctx, "best:3x3:y1"); err != nil || hit {
		t.Errorf("empty cache should miss: hit=%v err=%v", hit, err)
	}

	// Set then hit, surviving a ttl that has not elapsed
	if err := c.Set(ctx, "best:3x3:y1", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "best:3x3:y1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !hit || string(data) != "payload" {
		t.Errorf("Get = %q, %v; want payload, true", data, hit)
	}

	// Delete then miss; deleting again is not an error
	if err := c.Delete(ctx, "best:3x3:y1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "best:3x3:y1"); hit {
		t.Error("deleted entry should miss")
	}
	if err := c.Delete(ctx, "best:3x3:y1"); err != nil {
		t.Errorf("Delete of missing entry should be nil, got %v", err)
	}
}

func TestFileCacheExpiredEntryRemoved(t *testing.T) {
	ctx := context.Background()
	raw, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	c := raw.(*FileCache)

	// Plant an already-expired envelope directly on disk.
	env := envelope{Data: []byte("old"), ExpiresAt: time.Now().Add(-time.Minute)}
	payload, _ := json.Marshal(env)
	path := c.path("stale")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "stale"); err != nil || hit {
		t.Errorf("expired entry should miss: hit=%v err=%v", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}
}

func TestFileCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	raw, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	c := raw.(*FileCache)

	path := c.path("mangled")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "mangled"); err != nil || hit {
		t.Errorf("corrupt entry should read as a miss: hit=%v err=%v", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed from disk")
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// BestKnownKey is readable as-is
	bk := k.BestKnownKey(4, 5, "b1.r2.g3.y4")
	if bk != "best:4x5:b1.r2.g3.y4" {
		t.Errorf("BestKnownKey unexpected: %s", bk)
	}

	// EvaluationKey hashes the layout but keeps the board-size prefix
	ek1 := k.EvaluationKey(3, 3, "BYB/YBY/BYB")
	ek2 := k.EvaluationKey(3, 3, "BBB/BBB/BBB")
	if ek1 == ek2 {
		t.Error("Different layouts should produce different keys")
	}
	if !strings.HasPrefix(ek1, "eval:3x3:") {
		t.Errorf("EvaluationKey should carry the board size: %s", ek1)
	}
	if ek1 != k.EvaluationKey(3, 3, "BYB/YBY/BYB") {
		t.Error("EvaluationKey should be deterministic")
	}

	// Same layout on a different board is a different key
	if ek1 == k.EvaluationKey(9, 1, "BYB/YBY/BYB") {
		t.Error("Board size should be part of the key")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "run:123:")

	// All keys should be prefixed
	bk := scoped.BestKnownKey(2, 2, "y2")
	if bk != "run:123:best:2x2:y2" {
		t.Errorf("ScopedKeyer BestKnownKey unexpected: %s", bk)
	}

	ek := scoped.EvaluationKey(2, 2, "BB/BB")
	if !strings.HasPrefix(ek, "run:123:eval:2x2:") {
		t.Errorf("ScopedKeyer EvaluationKey should be prefixed: %s", ek)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.BestKnownKey(1, 1, "b1")
	if key != "prefix:best:1x1:b1" {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestRetryableError(t *testing.T) {
	// Retryable(nil) returns nil
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	// Non-nil error is wrapped
	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}

	// Error message is preserved
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}

	// Non-wrapped errors are not retryable
	if IsRetryable(ErrNotFound) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	// Success on first try
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return ErrNotFound
	})
	if err != ErrNotFound {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	// Retryable error triggers retries
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
