// Package fetcher resolves the child references of a pipeline run into
// execution records.
package fetcher

import (
	"context"
	"time"

	pipelinev1 "github.com/kination/runtopo/api/v1"
	"github.com/kination/runtopo/internal/topology"
)

// Source looks up the execution behind a child reference.
// Different implementations handle different kinds (TaskRun, CustomRun, etc.)
type Source interface {
	// Kinds returns the child reference kind(s) this source handles
	Kinds() []string

	// Fetch retrieves the execution named by ref in namespace
	Fetch(ctx context.Context, namespace string, ref pipelinev1.ChildReference) (topology.ExecutionRecord, error)
}

// Fetcher resolves every child reference of a run.
// Fetch returns once every lookup has settled. A failed lookup is reported as
// an unresolved entry, never as an error.
type Fetcher interface {
	Fetch(ctx context.Context, refs []pipelinev1.ChildReference, namespace string) topology.ExecutionMap
}

// FetcherConfig holds configuration for the fetcher
type FetcherConfig struct {
	// MaxConcurrent bounds the lookups in flight, 0 means unbounded
	MaxConcurrent int

	// MaxRetries is the number of retries after a failed lookup
	MaxRetries uint64

	// RetryInitialInterval is the first backoff interval between retries
	RetryInitialInterval time.Duration

	// FetchTimeout bounds a single lookup including retries, 0 means no timeout
	FetchTimeout time.Duration
}

// DefaultFetcherConfig returns the default fetcher configuration
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		MaxConcurrent:        10,
		MaxRetries:           2,
		RetryInitialInterval: 200 * time.Millisecond,
	}
}
