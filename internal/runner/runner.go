package runner

import (
	"context"
	"errors"

	ctrl "sigs.k8s.io/controller-runtime"

	pipelinev1 "github.com/kination/runtopo/api/v1"
	"github.com/kination/runtopo/internal/fetcher"
	"github.com/kination/runtopo/internal/topology"
)

var log = ctrl.Log.WithName("runner")

// DefaultRunner implements the Runner interface using an execution fetcher.
type DefaultRunner struct {
	fetcher fetcher.Fetcher
	config  RunnerConfig
}

// NewRunner creates a new DefaultRunner with the given fetcher
func NewRunner(f fetcher.Fetcher, config RunnerConfig) *DefaultRunner {
	return &DefaultRunner{
		fetcher: f,
		config:  config,
	}
}

// NewDefaultRunner creates a runner with default configuration
func NewDefaultRunner(f fetcher.Fetcher) *DefaultRunner {
	return NewRunner(f, DefaultRunnerConfig())
}

// Run fetches the executions behind the child references of pr and builds its topology
func (r *DefaultRunner) Run(ctx context.Context, pr *pipelinev1.PipelineRun) (*RunResult, error) {
	if pr == nil {
		return nil, errors.New("pipeline run is nil")
	}

	tasks := pr.Tasks()
	refs := pr.Status.ChildReferences

	var executions topology.ExecutionMap
	if len(refs) > 0 {
		fetchCtx := ctx
		if r.config.Timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
			defer cancel()
		}
		executions = r.fetcher.Fetch(fetchCtx, refs, pr.Namespace)
	}

	unresolved := executions.Unresolved()
	if len(unresolved) > 0 {
		log.Info("Some executions could not be resolved", "pipelineRun", pr.Name, "namespace", pr.Namespace, "unresolved", unresolved)
	}

	return &RunResult{
		Namespace:   pr.Namespace,
		Name:        pr.Name,
		Fingerprint: topology.Fingerprint(tasks, &pr.Status, executions),
		Done:        pr.IsDone(),
		Unresolved:  unresolved,
		Topology:    topology.Build(tasks, &pr.Status, executions),
	}, nil
}

// Config returns the runner configuration
func (r *DefaultRunner) Config() RunnerConfig {
	return r.config
}
