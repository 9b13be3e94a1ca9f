package fetcher

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	pipelinev1 "github.com/kination/runtopo/api/v1"
	"github.com/kination/runtopo/internal/topology"
)

var log = ctrl.Log.WithName("fetcher")

var fetchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "runtopo_execution_fetch_total",
		Help: "Execution lookups by child reference kind and result",
	},
	[]string{"kind", "result"},
)

func init() {
	metrics.Registry.MustRegister(fetchTotal)
}

// ConcurrentFetcher implements the Fetcher interface using the source registry.
type ConcurrentFetcher struct {
	registry *Registry
	config   FetcherConfig
}

// NewFetcher creates a new ConcurrentFetcher with the given source registry
func NewFetcher(registry *Registry, config FetcherConfig) *ConcurrentFetcher {
	return &ConcurrentFetcher{
		registry: registry,
		config:   config,
	}
}

// NewDefaultFetcher creates a fetcher with default configuration
func NewDefaultFetcher(registry *Registry) *ConcurrentFetcher {
	return NewFetcher(registry, DefaultFetcherConfig())
}

// Fetch looks up every child reference concurrently. Results carry the position
// of their reference; a name repeated in refs keeps its first lookup.
func (f *ConcurrentFetcher) Fetch(ctx context.Context, refs []pipelinev1.ChildReference, namespace string) topology.ExecutionMap {
	results := make([]topology.ExecutionResult, len(refs))

	var g errgroup.Group
	if f.config.MaxConcurrent > 0 {
		g.SetLimit(f.config.MaxConcurrent)
	}
	for i, ref := range refs {
		g.Go(func() error {
			results[i] = f.fetchOne(ctx, namespace, ref)
			return nil
		})
	}
	_ = g.Wait()

	executions := make(topology.ExecutionMap, len(refs))
	for i, ref := range refs {
		if _, seen := executions[ref.Name]; seen {
			continue
		}
		result := results[i]
		result.Index = i
		executions[ref.Name] = result
	}
	return executions
}

// Config returns the fetcher configuration
func (f *ConcurrentFetcher) Config() FetcherConfig {
	return f.config
}

func (f *ConcurrentFetcher) fetchOne(ctx context.Context, namespace string, ref pipelinev1.ChildReference) topology.ExecutionResult {
	kind := ref.Kind
	if kind == "" {
		kind = pipelinev1.TaskRunKind
	}

	src, err := f.registry.Get(kind)
	if err != nil {
		fetchTotal.WithLabelValues(kind, "unsupported").Inc()
		return topology.Unresolved(err)
	}

	if f.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.FetchTimeout)
		defer cancel()
	}

	var record topology.ExecutionRecord
	op := func() error {
		r, err := src.Fetch(ctx, namespace, ref)
		if err != nil {
			if apierrors.IsNotFound(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		record = r
		return nil
	}

	if err := backoff.Retry(op, f.newBackOff(ctx)); err != nil {
		log.V(1).Info("Execution lookup failed", "kind", kind, "namespace", namespace, "name", ref.Name, "error", err.Error())
		fetchTotal.WithLabelValues(kind, "failed").Inc()
		return topology.Unresolved(fmt.Errorf("fetch %s %s/%s: %w", kind, namespace, ref.Name, err))
	}

	if ref.PipelineTaskName != "" {
		record.PipelineTaskName = ref.PipelineTaskName
	}
	fetchTotal.WithLabelValues(kind, "resolved").Inc()
	return topology.Resolved(record)
}

func (f *ConcurrentFetcher) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if f.config.RetryInitialInterval > 0 {
		eb.InitialInterval = f.config.RetryInitialInterval
	}
	// bounded by MaxRetries and ctx instead
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, f.config.MaxRetries), ctx)
}
