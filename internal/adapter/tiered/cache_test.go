package tiered_test

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/DealForge/internal/adapter/tiered"
)

// memCache is a simple in-memory cache for testing.
type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestL2HitBackfillsL1(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)

	l2.data["brandref:camp-1"] = []byte("the fall collection")

	val, found, err := c.Get(context.Background(), "brandref:camp-1")
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(val) != "the fall collection" {
		t.Fatalf("got %q found=%v", val, found)
	}
	if _, ok := l1.data["brandref:camp-1"]; !ok {
		t.Error("L2 hit did not backfill L1")
	}
}

func TestL1HitSkipsL2(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, time.Minute)

	l1.data["k"] = []byte("local")
	l2.data["k"] = []byte("remote")

	val, found, err := c.Get(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(val) != "local" {
		t.Fatalf("got %q found=%v, want the L1 value", val, found)
	}
}

func TestSetAndDeleteHitBothLevels(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, ok := l1.data["k"]; !ok {
		t.Error("Set missed L1")
	}
	if _, ok := l2.data["k"]; !ok {
		t.Error("Set missed L2")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok := l1.data["k"]; ok {
		t.Error("Delete missed L1")
	}
	if _, ok := l2.data["k"]; ok {
		t.Error("Delete missed L2")
	}
}

func TestMiss(t *testing.T) {
	c := tiered.New(newMemCache(), newMemCache(), time.Minute)
	_, found, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("unexpected hit")
	}
}
