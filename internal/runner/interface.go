// Package runner computes the topology of a pipeline run.
// Runner fetches the run's executions and hands them to topology.Build.
package runner

import (
	"context"
	"time"

	pipelinev1 "github.com/kination/runtopo/api/v1"
	"github.com/kination/runtopo/internal/store"
	"github.com/kination/runtopo/internal/topology"
)

// Runner defines the interface for topology computation
type Runner interface {
	// Run computes the topology of pr
	Run(ctx context.Context, pr *pipelinev1.PipelineRun) (*RunResult, error)
}

// RunResult contains the outcome of one topology computation
type RunResult struct {
	// Namespace and Name identify the PipelineRun
	Namespace string
	Name      string

	// Fingerprint identifies the inputs of the computation
	Fingerprint uint64

	// Done reports whether the run had finished
	Done bool

	// Unresolved lists child references whose lookup failed
	Unresolved []string

	// Topology is the computed graph
	Topology topology.Topology
}

// Entry converts the result into a store entry computed at now
func (r *RunResult) Entry(now time.Time) *store.Entry {
	return &store.Entry{
		Namespace:   r.Namespace,
		Name:        r.Name,
		Fingerprint: r.Fingerprint,
		ComputedAt:  now,
		Done:        r.Done,
		Unresolved:  r.Unresolved,
		Topology:    r.Topology,
	}
}

// RunnerConfig holds configuration for the runner
type RunnerConfig struct {
	// Timeout bounds the execution lookups of one run, 0 means no timeout
	Timeout time.Duration
}

// DefaultRunnerConfig returns the default runner configuration
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Timeout: 30 * time.Second,
	}
}
