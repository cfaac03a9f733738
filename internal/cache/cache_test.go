package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("https://example.com/scData.json")
	b := CacheKey("https://example.com/scData.json")
	c := CacheKey("https://example.com/other.json")

	if a != b {
		t.Error("Expected stable key for the same source")
	}
	if a == c {
		t.Error("Expected different keys for different sources")
	}
	if !strings.HasPrefix(a, "docket:v1:") {
		t.Errorf("Expected versioned prefix, got %s", a)
	}
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Errorf("Expected v, got %q (found=%v)", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 item, got %d", c.Len())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Expected key to be deleted")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := c.Set("k", []byte(`[{"caseTitle":"A"}]`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != `[{"caseTitle":"A"}]` {
		t.Errorf("Unexpected cached value %q (found=%v)", got, ok)
	}

	if err := c.Set("old", []byte("x"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := c.Get("old"); ok {
		t.Error("Expected expired entry to miss")
	}
	if _, err := os.Stat(filepath.Join(dir, "old.cache")); !os.IsNotExist(err) {
		t.Error("Expected expired entry file to be removed")
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("Expected no leftover temp files, found %s", e.Name())
		}
	}
}

func TestDiskCache_DeleteMissing(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Delete("absent"); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	memory := NewMemoryCache(time.Hour, time.Minute)
	c := &LayeredCache{memory: memory, disk: disk}

	if _, ok := memory.Get("k"); ok {
		t.Fatal("Expected memory layer to start empty")
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Expected disk hit, got %q (found=%v)", got, ok)
	}
	if _, ok := memory.Get("k"); !ok {
		t.Error("Expected disk hit to be promoted to memory")
	}
}

func TestLayeredCache_SetDeleteClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewLayeredCache(time.Hour, dir, time.Hour)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "k.cache")); err != nil {
		t.Errorf("Expected write-through to disk: %v", err)
	}

	if err := c.Delete("k"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Expected key gone from both layers")
	}

	_ = c.Set("k2", []byte("v"), 0)
	if err := c.Clear(); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
	if _, ok := c.Get("k2"); ok {
		t.Error("Expected clear to empty both layers")
	}
}
