// Package cli wires flags, configuration and the inspection pipeline into
// the oke-node-inspector command.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/config"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/k8sclient"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/snapshot"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/version"
)

const binaryName = "oke-node-inspector"

// ConnectFunc opens a snapshot source for a kubeconfig/context pair and
// returns the context name shown in the report.
type ConnectFunc func(kubeconfig, context string, timeout time.Duration, log *zap.Logger) (snapshot.Fetcher, string, error)

type app struct {
	configPath      string
	context         string
	kubeconfig      string
	verbose         bool
	filterTainted   bool
	filterHighUsage bool
	filters         []string
	sortBy          string
	selector        string
	basis           string
	highUsage       float64
	width           int
	noColor         bool
	output          string
	watch           time.Duration
	timeout         time.Duration
	strict          bool

	cfg     *config.Config
	connect ConnectFunc
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdin, os.Stdout, os.Stderr, defaultConnect)
}

func NewRootCommandWithIO(in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newRootCommand(in, out, errOut, defaultConnect)
}

func newRootCommand(in io.Reader, out, errOut io.Writer, connect ConnectFunc) *cobra.Command {
	a := &app{
		connect: connect,
		stdin:   in,
		stdout:  out,
		stderr:  errOut,
	}

	cmd := &cobra.Command{
		Use:   binaryName,
		Short: "Inspect OKE worker node utilization, taints and autoscaler metadata",
		Long: "oke-node-inspector reports per-node and cluster-wide CPU, memory and pod utilization " +
			"for a Kubernetes cluster, with filters and sort orders for capacity triage. " +
			"It needs metrics-server for usage data and only reads from the cluster.",
		Example: "  oke-node-inspector --sort-by cpu\n" +
			"  oke-node-inspector --filter-tainted --filter-high-usage\n" +
			"  oke-node-inspector -l oke.oraclecloud.com/pool.name=pool1 -o json\n" +
			"  oke-node-inspector --watch 15s",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to the config file (default ~/.oke-node-inspector/config.yaml)")
	pf.StringVar(&a.context, "context", "", "kubeconfig context to inspect (default: K8S_CONTEXT or the current context)")
	pf.StringVar(&a.kubeconfig, "kubeconfig", "", "path to the kubeconfig file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "show allocatable and node conditions, and log at debug level")

	f := cmd.Flags()
	f.BoolVar(&a.filterTainted, "filter-tainted", false, "show only tainted nodes")
	f.BoolVar(&a.filterHighUsage, "filter-high-usage", false, "show only nodes above the high-usage threshold for CPU or memory")
	f.StringSliceVar(&a.filters, "filter", nil, "filter nodes: tainted, high-usage, not-ready, no-metrics (repeatable, combined with AND)")
	f.StringVar(&a.sortBy, "sort-by", "", "sort nodes by cpu, memory, pods or name (default name)")
	f.StringVarP(&a.selector, "selector", "l", "", "label selector restricting the nodes inspected")
	f.StringVar(&a.basis, "basis", "", "percentage denominator: capacity or allocatable (default capacity)")
	f.Float64Var(&a.highUsage, "high-usage-threshold", 0, "percentage above which a node counts as high usage (default 75)")
	f.IntVar(&a.width, "width", 0, "box width in columns (default: terminal width)")
	f.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	f.StringVarP(&a.output, "output", "o", "text", "output format: text, json, yaml or prometheus")
	f.DurationVar(&a.watch, "watch", 0, "refresh the report at this interval in a full-screen view (text output only)")
	f.DurationVar(&a.timeout, "timeout", 0, "timeout for cluster requests (default 30s)")
	f.BoolVar(&a.strict, "strict", false, "exit non-zero when nodes were skipped because of invalid capacity")

	_ = cmd.RegisterFlagCompletionFunc("context", func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		ctxs, err := k8sclient.ListContexts(a.kubeconfig)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return ctxs, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("sort-by", fixedCompletions("cpu", "memory", "pods", "name"))
	_ = cmd.RegisterFlagCompletionFunc("filter", fixedCompletions("tainted", "high-usage", "not-ready", "no-metrics"))
	_ = cmd.RegisterFlagCompletionFunc("output", fixedCompletions("text", "json", "yaml", "prometheus"))
	_ = cmd.RegisterFlagCompletionFunc("basis", fixedCompletions("capacity", "allocatable"))

	cmd.AddCommand(
		newCheckCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)

	cmd.SetVersionTemplate(fmt.Sprintf("%s {{.Version}} (commit %s, built %s)\n", binaryName, version.Commit, version.BuildDate))

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if strings.TrimSpace(a.context) == "-" {
			return fmt.Errorf("--context '-' is not valid")
		}
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
		return nil
	}

	cmd.SetErrPrefix(binaryName + ":")
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	return cmd
}

func fixedCompletions(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

func defaultConnect(kubeconfig, contextName string, timeout time.Duration, log *zap.Logger) (snapshot.Fetcher, string, error) {
	b, err := k8sclient.NewBundle(kubeconfig, contextName, timeout)
	if err != nil {
		return nil, "", err
	}
	log.Debug("kubeconfig resolved",
		zap.String("context", b.EffectiveContext),
		zap.String("cluster", k8sclient.ClusterName(b.RawConfig, b.EffectiveContext)),
		zap.String("server", b.REST.Host),
		zap.Strings("auth", k8sclient.DetectAuthMethods(b.RawConfig, b.EffectiveContext)),
	)
	return &snapshot.Source{Core: b.Clientset, Metrics: b.Metrics, Log: log}, b.EffectiveContext, nil
}
