package balance

import (
	"errors"
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	cache := NewTTLCache[string, int](30 * time.Millisecond)

	cache.Set("a", 1)
	if got, ok := cache.Get("a"); !ok || got != 1 {
		t.Fatalf("expected fresh hit, got %d ok=%v", got, ok)
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := cache.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestTTLCacheGetOrCompute(t *testing.T) {
	cache := NewTTLCache[string, int](time.Minute)

	computes := 0
	compute := func() (int, error) {
		computes++
		return 9, nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.GetOrCompute("k", compute)
		if err != nil {
			t.Fatal(err)
		}
		if got != 9 {
			t.Fatalf("got %d, want 9", got)
		}
	}
	if computes != 1 {
		t.Errorf("compute ran %d times, want 1", computes)
	}
}

func TestTTLCacheComputeErrorNotCached(t *testing.T) {
	cache := NewTTLCache[string, int](time.Minute)

	boom := errors.New("boom")
	if _, err := cache.GetOrCompute("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatal("failed compute must not populate the cache")
	}

	got, err := cache.GetOrCompute("k", func() (int, error) { return 5, nil })
	if err != nil || got != 5 {
		t.Fatalf("recovery compute: got %d err=%v", got, err)
	}
}
