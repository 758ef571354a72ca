package loader

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func testFeature(name string, vertices int) *Feature {
	coords := make([]orb.Point, vertices)
	return &Feature{Name: name, Coordinates: coords}
}

func TestCacheBasic(t *testing.T) {
	cache := NewCache(1024 * 1024)

	stats := cache.Stats()
	if stats.Entries != 0 {
		t.Errorf("Expected empty cache, got %d entries", stats.Entries)
	}

	loadCount := 0
	f, hit, err := cache.Get("land", func() (*Feature, error) {
		loadCount++
		return testFeature("land", 4), nil
	})
	if err != nil {
		t.Fatalf("Failed to load feature: %v", err)
	}
	if hit {
		t.Error("Expected miss on first access")
	}
	if f.Name != "land" {
		t.Errorf("Expected feature 'land', got '%s'", f.Name)
	}

	f2, hit, err := cache.Get("land", func() (*Feature, error) {
		loadCount++
		return testFeature("other", 4), nil
	})
	if err != nil {
		t.Fatalf("Failed to get cached feature: %v", err)
	}
	if !hit || f2 != f {
		t.Error("Expected cached feature on second access")
	}
	if loadCount != 1 {
		t.Errorf("Expected loader called once, got %d times", loadCount)
	}
}

func TestCacheNilFeature(t *testing.T) {
	cache := NewCache(0)
	calls := 0
	load := func() (*Feature, error) {
		calls++
		return nil, nil
	}

	for i := 0; i < 3; i++ {
		f, _, err := cache.Get("empty", load)
		if err != nil || f != nil {
			t.Fatalf("Expected nil feature, got %v, %v", f, err)
		}
	}
	if calls != 1 {
		t.Errorf("Expected empty result to be cached, loader called %d times", calls)
	}
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(2 * 1024)

	for i := 0; i < 10; i++ {
		name := string(rune('A' + i))
		if _, _, err := cache.Get(name, func() (*Feature, error) {
			return testFeature(name, 20), nil
		}); err != nil {
			t.Fatalf("Failed to add feature %s: %v", name, err)
		}
	}

	stats := cache.Stats()
	if stats.Entries >= 10 {
		t.Errorf("Expected eviction, but cache has %d entries", stats.Entries)
	}
	if stats.UsedMemory > cache.maxMemory {
		t.Errorf("Cache exceeded max memory: %d > %d", stats.UsedMemory, cache.maxMemory)
	}

	// The most recent entry survives.
	if _, hit, _ := cache.Get("J", func() (*Feature, error) { return nil, nil }); !hit {
		t.Error("Expected most recent entry to be cached")
	}
}

func TestCacheTooLarge(t *testing.T) {
	cache := NewCache(512)
	f, hit, err := cache.Get("huge", func() (*Feature, error) {
		return testFeature("huge", 1000), nil
	})
	if err != nil || hit || f == nil {
		t.Fatalf("Expected uncached feature, got %v, %v, %v", f, hit, err)
	}
	if cache.Stats().Entries != 0 {
		t.Error("Oversized feature must not be cached")
	}
	if err := cache.Add("huge", f); err == nil {
		t.Error("Expected error adding oversized feature")
	}
}

func TestCacheLoadError(t *testing.T) {
	cache := NewCache(0)
	want := errors.New("boom")
	_, _, err := cache.Get("x", func() (*Feature, error) { return nil, want })
	if !errors.Is(err, want) {
		t.Errorf("Expected loader error, got %v", err)
	}
	if cache.Stats().Entries != 0 {
		t.Error("Failed loads must not be cached")
	}
}

func TestCacheRemoveAndClear(t *testing.T) {
	cache := NewCache(0)
	_ = cache.Add("a", testFeature("a", 1))
	_ = cache.Add("b", testFeature("b", 1))

	cache.Remove("a")
	if cache.Stats().Entries != 1 {
		t.Errorf("Expected 1 entry after remove, got %d", cache.Stats().Entries)
	}

	cache.Clear()
	stats := cache.Stats()
	if stats.Entries != 0 || stats.UsedMemory != 0 {
		t.Errorf("Expected empty cache after clear, got %+v", stats)
	}
}
