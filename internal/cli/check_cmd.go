package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/k8sclient"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify kubeconfig, API server reachability and metrics-server availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kubeconfig := a.cfg.Kubeconfig
			if cmd.Flags().Changed("kubeconfig") {
				kubeconfig = a.kubeconfig
			}
			contextName := a.cfg.Context
			if cmd.Flags().Changed("context") {
				contextName = a.context
			}
			if contextName == "" {
				current, err := k8sclient.CurrentContext(kubeconfig)
				if err != nil {
					return err
				}
				contextName = current
			}
			timeout, err := a.cfg.TimeoutDuration()
			if err != nil {
				return err
			}

			b, err := k8sclient.NewBundle(kubeconfig, contextName, timeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s %s\n", "Context", b.EffectiveContext)
			fmt.Fprintf(out, "%-12s %s\n", "Cluster", k8sclient.ClusterName(b.RawConfig, b.EffectiveContext))
			fmt.Fprintf(out, "%-12s %s\n", "Server", b.REST.Host)
			fmt.Fprintf(out, "%-12s %s\n", "Auth", strings.Join(k8sclient.DetectAuthMethods(b.RawConfig, b.EffectiveContext), ", "))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			if err := k8sclient.TestConnection(ctx, b); err != nil {
				fmt.Fprintf(out, "%-12s %s\n", "API server", "unreachable")
				return err
			}
			fmt.Fprintf(out, "%-12s %s\n", "API server", "ok")

			if _, err := b.Metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
				fmt.Fprintf(out, "%-12s %s\n", "Metrics", "unavailable")
				return fmt.Errorf("metrics.k8s.io is not serving (is metrics-server installed?): %w", k8sclient.WrapConnErr(err))
			}
			fmt.Fprintf(out, "%-12s %s\n", "Metrics", "ok")
			return nil
		},
	}
}
