package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kination/runtopo/internal/topology"
)

func newEntry(namespace, name string, fp uint64) *Entry {
	return &Entry{
		Namespace:   namespace,
		Name:        name,
		Fingerprint: fp,
		ComputedAt:  time.Unix(1700000000, 0).UTC(),
		Topology: topology.Topology{
			TaskMap: map[string]topology.TaskDetails{},
			Nodes:   []topology.Node{{ID: "a", Label: "a"}},
		},
	}
}

func TestMemory_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	want := newEntry("default", "run-1", 42)
	if err := m.SaveTopology(ctx, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.GetTopology(ctx, "default", "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestMemory_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_ = m.SaveTopology(ctx, newEntry("default", "run-1", 1))
	_ = m.SaveTopology(ctx, newEntry("default", "run-1", 2))

	got, err := m.GetTopology(ctx, "default", "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Fingerprint != 2 {
		t.Errorf("expected fingerprint 2, got %d", got.Fingerprint)
	}
}

func TestMemory_GetNotFound(t *testing.T) {
	_, err := NewMemory().GetTopology(context.Background(), "default", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_SaveRejectsInvalid(t *testing.T) {
	m := NewMemory()
	if err := m.SaveTopology(context.Background(), nil); err == nil {
		t.Error("expected error for nil entry")
	}
	if err := m.SaveTopology(context.Background(), &Entry{Namespace: "default"}); err == nil {
		t.Error("expected error for unnamed entry")
	}
}

func TestMemory_List(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, name := range []string{"c", "a", "b"} {
		_ = m.SaveTopology(ctx, newEntry("default", name, 0))
	}
	_ = m.SaveTopology(ctx, newEntry("other", "z", 0))

	tests := []struct {
		name      string
		namespace string
		opts      ListOptions
		expected  []string
	}{
		{name: "namespace", namespace: "default", expected: []string{"a", "b", "c"}},
		{name: "all namespaces", namespace: "", expected: []string{"a", "b", "c", "z"}},
		{name: "limit", namespace: "default", opts: ListOptions{Limit: 2}, expected: []string{"a", "b"}},
		{name: "offset", namespace: "default", opts: ListOptions{Offset: 1}, expected: []string{"b", "c"}},
		{name: "offset past end", namespace: "default", opts: ListOptions{Offset: 5}, expected: []string{}},
		{name: "unknown namespace", namespace: "nope", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := m.ListTopologies(ctx, tt.namespace, tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name)
			}
			if diff := cmp.Diff(tt.expected, names); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.SaveTopology(ctx, newEntry("default", "run-1", 0))

	if err := m.DeleteTopology(ctx, "default", "run-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.GetTopology(ctx, "default", "run-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := m.DeleteTopology(ctx, "default", "run-1"); err != nil {
		t.Errorf("deleting a missing entry should succeed, got %v", err)
	}
}

func TestMemory_Close(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Ping(ctx); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}

	_ = m.Close()

	if err := m.Ping(ctx); err == nil {
		t.Error("ping should fail after close")
	}
	if err := m.SaveTopology(ctx, newEntry("default", "run-1", 0)); err == nil {
		t.Error("save should fail after close")
	}
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("run-%d", i)
			for j := 0; j < 50; j++ {
				_ = m.SaveTopology(ctx, newEntry("default", name, uint64(j)))
				_, _ = m.GetTopology(ctx, "default", name)
				_, _ = m.ListTopologies(ctx, "default", ListOptions{})
			}
		}(i)
	}
	wg.Wait()

	entries, _ := m.ListTopologies(ctx, "default", ListOptions{})
	if len(entries) != 10 {
		t.Errorf("expected 10 entries, got %d", len(entries))
	}
}

func TestNew(t *testing.T) {
	s, err := New(DefaultStoreConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("expected *Memory, got %T", s)
	}
	if _, err := New(StoreConfig{Type: "postgres"}); err == nil {
		t.Error("expected error for unsupported type")
	}
}
