package controller

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	pipelinev1 "github.com/kination/runtopo/api/v1"
	"github.com/kination/runtopo/internal/runner"
	"github.com/kination/runtopo/internal/store"
)

var topologyUpdates = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "runtopo_topology_updates_total",
		Help: "Topology computations by outcome",
	},
	[]string{"outcome"},
)

func init() {
	metrics.Registry.MustRegister(topologyUpdates)
}

// ReconcilerConfig holds configuration for the PipelineRun reconciler
type ReconcilerConfig struct {
	// ResyncPeriod is how often an unfinished run is recomputed
	ResyncPeriod time.Duration
}

// DefaultReconcilerConfig returns the default reconciler configuration
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		ResyncPeriod: 10 * time.Second,
	}
}

// PipelineRunReconciler keeps the stored topology of each PipelineRun current
// +kubebuilder:rbac:groups=tekton.dev,resources=pipelineruns,verbs=get;list;watch
// +kubebuilder:rbac:groups=tekton.dev,resources=taskruns,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch
type PipelineRunReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Runner   runner.Runner
	Store    store.Store
	Recorder record.EventRecorder
	Config   ReconcilerConfig

	// Now defaults to time.Now
	Now func() time.Time
}

func (r *PipelineRunReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := log.FromContext(ctx)

	var pr pipelinev1.PipelineRun
	if err := r.Get(ctx, req.NamespacedName, &pr); err != nil {
		if client.IgnoreNotFound(err) != nil {
			return ctrl.Result{}, err
		}
		// Run is gone, drop its topology
		topologyUpdates.WithLabelValues("deleted").Inc()
		return ctrl.Result{}, r.Store.DeleteTopology(ctx, req.Namespace, req.Name)
	}

	result, err := r.Runner.Run(ctx, &pr)
	if err != nil {
		topologyUpdates.WithLabelValues("error").Inc()
		return ctrl.Result{}, err
	}

	prev, err := r.Store.GetTopology(ctx, pr.Namespace, pr.Name)
	switch {
	case err == nil && prev.Fingerprint == result.Fingerprint && prev.Done == result.Done:
		topologyUpdates.WithLabelValues("unchanged").Inc()
	case err == nil || errors.Is(err, store.ErrNotFound):
		log.Info("Storing topology", "PipelineRun.Name", pr.Name, "nodes", len(result.Topology.Nodes), "unresolved", len(result.Unresolved))
		if err := r.Store.SaveTopology(ctx, result.Entry(r.now())); err != nil {
			topologyUpdates.WithLabelValues("error").Inc()
			return ctrl.Result{}, err
		}
		topologyUpdates.WithLabelValues("stored").Inc()
		r.recordEvent(&pr, result)
	default:
		topologyUpdates.WithLabelValues("error").Inc()
		return ctrl.Result{}, err
	}

	// If the run is not finished, recompute later
	if !result.Done || len(result.Unresolved) > 0 {
		return ctrl.Result{RequeueAfter: r.resyncPeriod()}, nil
	}

	return ctrl.Result{}, nil
}

func (r *PipelineRunReconciler) recordEvent(pr *pipelinev1.PipelineRun, result *runner.RunResult) {
	if r.Recorder == nil {
		return
	}
	if len(result.Unresolved) > 0 {
		r.Recorder.Eventf(pr, corev1.EventTypeWarning, "UnresolvedExecutions",
			"Could not resolve %d execution(s): %v", len(result.Unresolved), result.Unresolved)
		return
	}
	r.Recorder.Eventf(pr, corev1.EventTypeNormal, "TopologyUpdated",
		"Topology has %d task(s)", len(result.Topology.Nodes))
}

func (r *PipelineRunReconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *PipelineRunReconciler) resyncPeriod() time.Duration {
	if r.Config.ResyncPeriod > 0 {
		return r.Config.ResyncPeriod
	}
	return DefaultReconcilerConfig().ResyncPeriod
}

// SetupWithManager sets up the controller with the Manager.
func (r *PipelineRunReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&pipelinev1.PipelineRun{}).
		Owns(&pipelinev1.TaskRun{}).
		Complete(r)
}
