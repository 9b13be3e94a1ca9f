package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	pipelinev1 "github.com/kination/runtopo/api/v1"
	"github.com/kination/runtopo/internal/controller"
	"github.com/kination/runtopo/internal/fetcher"
	"github.com/kination/runtopo/internal/fetcher/taskrun"
	"github.com/kination/runtopo/internal/runner"
	"github.com/kination/runtopo/internal/server"
	"github.com/kination/runtopo/internal/store"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(pipelinev1.AddToScheme(scheme))
}

type options struct {
	metricsAddr          string
	probeAddr            string
	apiAddr              string
	enableLeaderElection bool
	resyncPeriod         time.Duration
	fetch                fetcher.FetcherConfig
	runTimeout           time.Duration
	zap                  zap.Options
}

func newRootCmd() *cobra.Command {
	opts := options{
		fetch: fetcher.DefaultFetcherConfig(),
		zap:   zap.Options{Development: true},
	}

	cmd := &cobra.Command{
		Use:          "manager",
		Short:        "runtopo controller - keep PipelineRun topologies current and serve them over HTTP",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	f.StringVar(&opts.probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	f.StringVar(&opts.apiAddr, "api-bind-address", server.DefaultServerConfig().Addr, "The address the topology API binds to.")
	f.BoolVar(&opts.enableLeaderElection, "leader-elect", false, "Enable leader election for controller manager.")
	f.DurationVar(&opts.resyncPeriod, "resync-period", controller.DefaultReconcilerConfig().ResyncPeriod, "How often unfinished runs are recomputed.")
	f.IntVar(&opts.fetch.MaxConcurrent, "fetch-concurrency", opts.fetch.MaxConcurrent, "Maximum TaskRun lookups in flight per run.")
	f.Uint64Var(&opts.fetch.MaxRetries, "fetch-retries", opts.fetch.MaxRetries, "Retries after a failed TaskRun lookup.")
	f.DurationVar(&opts.fetch.FetchTimeout, "fetch-timeout", opts.fetch.FetchTimeout, "Timeout of a single TaskRun lookup, 0 for none.")
	f.DurationVar(&opts.runTimeout, "run-timeout", runner.DefaultRunnerConfig().Timeout, "Timeout of all lookups of one run, 0 for none.")

	goFlags := flag.NewFlagSet("zap", flag.ExitOnError)
	opts.zap.BindFlags(goFlags)
	f.AddGoFlagSet(goFlags)

	return cmd
}

func run(opts options) error {
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts.zap)))

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: opts.metricsAddr},
		HealthProbeBindAddress: opts.probeAddr,
		LeaderElection:         opts.enableLeaderElection,
		LeaderElectionID:       "runtopo.kination.io",
	})
	if err != nil {
		return fmt.Errorf("unable to start manager: %w", err)
	}

	registry := fetcher.NewRegistry()
	if err := registry.Register(taskrun.New(mgr.GetClient())); err != nil {
		return fmt.Errorf("unable to register TaskRun source: %w", err)
	}
	r := runner.NewRunner(fetcher.NewFetcher(registry, opts.fetch), runner.RunnerConfig{Timeout: opts.runTimeout})

	topologies, err := store.New(store.DefaultStoreConfig())
	if err != nil {
		return fmt.Errorf("unable to create store: %w", err)
	}
	defer topologies.Close()

	if err := (&controller.PipelineRunReconciler{
		Client:   mgr.GetClient(),
		Scheme:   mgr.GetScheme(),
		Runner:   r,
		Store:    topologies,
		Recorder: mgr.GetEventRecorderFor("runtopo"),
		Config:   controller.ReconcilerConfig{ResyncPeriod: opts.resyncPeriod},
	}).SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to create controller PipelineRun: %w", err)
	}

	apiConfig := server.DefaultServerConfig()
	apiConfig.Addr = opts.apiAddr
	if err := mgr.Add(server.New(topologies, apiConfig)); err != nil {
		return fmt.Errorf("unable to add topology API: %w", err)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	setupLog.Info("starting manager", "kinds", registry.Kinds())
	return mgr.Start(ctrl.SetupSignalHandler())
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
