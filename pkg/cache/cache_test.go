package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestFileCacheRoundTrip(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want miss", ok, err)
	}

	if err := c.Set(ctx, "k", []byte("layout-bytes"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get(k) = ok=%v err=%v, want hit", ok, err)
	}
	if string(data) != "layout-bytes" {
		t.Errorf("Get(k) = %q, want %q", data, "layout-bytes")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get after Delete reported a hit")
	}
	// Deleting a missing key is not an error.
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete(missing): %v", err)
	}
}

func TestFileCacheExpiration(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok, err := c.Get(ctx, "k"); err != nil || ok {
		t.Errorf("Get(expired) = ok=%v err=%v, want miss", ok, err)
	}
}

func TestNullCache(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "k"); err != nil || ok {
		t.Errorf("Get = ok=%v err=%v, want miss", ok, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	opts := LayoutKeyOpts{Mode: "columns", HardwareOnSides: true, MinColumns: 3}

	key1 := k.LayoutKey("abc123", opts)
	key2 := k.LayoutKey("abc123", opts)
	if key1 != key2 {
		t.Errorf("same inputs produced different keys: %q vs %q", key1, key2)
	}
	if !strings.HasPrefix(key1, "layout:") {
		t.Errorf("LayoutKey = %q, want layout: prefix", key1)
	}

	// Any option change must change the key.
	changed := opts
	changed.MinColumns = 5
	if k.LayoutKey("abc123", changed) == key1 {
		t.Error("changed options produced the same key")
	}
	if k.LayoutKey("def456", opts) == key1 {
		t.Error("changed snapshot hash produced the same key")
	}

	art := k.ArtifactKey("abc123", ArtifactKeyOpts{Format: "svg"})
	if !strings.HasPrefix(art, "artifact:") {
		t.Errorf("ArtifactKey = %q, want artifact: prefix", art)
	}
	if k.ArtifactKey("abc123", ArtifactKeyOpts{Format: "png"}) == art {
		t.Error("changed format produced the same key")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "studio-a:")

	opts := LayoutKeyOpts{Mode: "columns"}
	got := scoped.LayoutKey("abc", opts)
	want := "studio-a:" + inner.LayoutKey("abc", opts)
	if got != want {
		t.Errorf("LayoutKey = %q, want %q", got, want)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("snapshot"))
	h2 := Hash([]byte("snapshot"))
	if h1 != h2 {
		t.Errorf("same bytes produced different hashes: %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("len(hash) = %d, want 64", len(h1))
	}
	if Hash([]byte("other")) == h1 {
		t.Error("different bytes produced the same hash")
	}
}
