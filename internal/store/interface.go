// Package store provides storage for computed pipeline run topologies.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kination/runtopo/internal/topology"
)

// ErrNotFound is returned when no topology is stored for a run
var ErrNotFound = errors.New("topology not found")

// Store defines the interface for topology persistence.
// Saves replace the stored entry wholesale.
type Store interface {
	// Topology operations
	SaveTopology(ctx context.Context, entry *Entry) error
	GetTopology(ctx context.Context, namespace, name string) (*Entry, error)
	ListTopologies(ctx context.Context, namespace string, opts ListOptions) ([]*Entry, error)
	DeleteTopology(ctx context.Context, namespace, name string) error

	// Health check
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}

// ListOptions defines options for listing operations
type ListOptions struct {
	// Limit is the maximum number of items to return, 0 means no limit
	Limit int
	// Offset is the number of items to skip
	Offset int
}

// Entry is the topology computed for one pipeline run
type Entry struct {
	// Namespace is the namespace of the PipelineRun
	Namespace string `json:"namespace"`
	// Name is the name of the PipelineRun
	Name string `json:"name"`
	// Fingerprint identifies the inputs the topology was computed from
	Fingerprint uint64 `json:"fingerprint"`
	// ComputedAt is when the topology was computed
	ComputedAt time.Time `json:"computedAt"`
	// Done reports whether the run had finished when computed
	Done bool `json:"done"`
	// Unresolved lists child references whose lookup failed
	Unresolved []string `json:"unresolved,omitempty"`
	// Topology is the computed graph
	Topology topology.Topology `json:"topology"`
}

// StoreConfig holds configuration for creating a store
type StoreConfig struct {
	// Type is the store backend type
	Type StoreType
	// Timeout is the default operation timeout
	Timeout time.Duration
}

// StoreType defines the type of store backend
type StoreType string

const (
	// StoreTypeMemory keeps topologies in process memory
	StoreTypeMemory StoreType = "memory"
)

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:    StoreTypeMemory,
		Timeout: 5 * time.Second,
	}
}

// New creates a store for the configured backend
func New(cfg StoreConfig) (Store, error) {
	switch cfg.Type {
	case StoreTypeMemory, "":
		return NewMemory(), nil
	default:
		return nil, errors.New("unsupported store type: " + string(cfg.Type))
	}
}
