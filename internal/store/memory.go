package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errClosed = errors.New("store is closed")

type key struct {
	namespace string
	name      string
}

// Memory is an in-process Store
type Memory struct {
	mu      sync.RWMutex
	entries map[key]*Entry
	closed  bool
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[key]*Entry),
	}
}

// SaveTopology stores entry, replacing any previous entry for the same run
func (m *Memory) SaveTopology(_ context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	if entry.Name == "" {
		return errors.New("entry name is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errClosed
	}
	cp := *entry
	m.entries[key{entry.Namespace, entry.Name}] = &cp
	return nil
}

// GetTopology returns the stored entry for a run
func (m *Memory) GetTopology(_ context.Context, namespace, name string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errClosed
	}
	e, ok := m.entries[key{namespace, name}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// ListTopologies returns the entries of a namespace ordered by name.
// An empty namespace lists every namespace.
func (m *Memory) ListTopologies(_ context.Context, namespace string, opts ListOptions) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errClosed
	}

	var out []*Entry
	for k, e := range m.entries {
		if namespace != "" && k.namespace != namespace {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []*Entry{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	if out == nil {
		out = []*Entry{}
	}
	return out, nil
}

// DeleteTopology removes the entry for a run. Deleting a missing entry is not an error.
func (m *Memory) DeleteTopology(_ context.Context, namespace, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errClosed
	}
	delete(m.entries, key{namespace, name})
	return nil
}

// Ping reports whether the store is usable
func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return errClosed
	}
	return nil
}

// Close drops every entry
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.entries = nil
	return nil
}
