// Package snapshot collects the node, pod and usage data one inspection
// needs from the API server.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/pager"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inventory"
)

// ErrNoMetricsClient is recorded as the metrics error when no metrics client
// was configured.
var ErrNoMetricsClient = errors.New("metrics client not configured")

const defaultPageSize = 500

// Query narrows what is collected.
type Query struct {
	// LabelSelector restricts nodes and node metrics, e.g. "oke.oraclecloud.com/pool.name=pool1".
	LabelSelector string
}

// Fetcher produces snapshots.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (inventory.Snapshot, error)
}

// Source reads snapshots from a cluster.
type Source struct {
	Core     kubernetes.Interface
	Metrics  metricsclient.Interface
	Log      *zap.Logger
	PageSize int64
	Now      func() time.Time
}

var _ Fetcher = (*Source)(nil)

// Fetch lists nodes, node metrics and pods concurrently. A failing metrics
// API does not fail the fetch; the error is returned in Snapshot.MetricsErr
// and every node is reported without a sample.
func (s *Source) Fetch(ctx context.Context, q Query) (inventory.Snapshot, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	if s.Core == nil {
		return inventory.Snapshot{}, errors.New("kubernetes client not configured")
	}
	if q.LabelSelector != "" {
		if _, err := labels.Parse(q.LabelSelector); err != nil {
			return inventory.Snapshot{}, fmt.Errorf("invalid label selector %q: %w", q.LabelSelector, err)
		}
	}

	var (
		nodes      []corev1.Node
		samples    map[string]inventory.UsageSample
		metricsErr error
		pods       map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.Core.CoreV1().Nodes().List(gctx, metav1.ListOptions{LabelSelector: q.LabelSelector})
		if err != nil {
			return fmt.Errorf("list nodes: %w", err)
		}
		nodes = list.Items
		return nil
	})
	g.Go(func() error {
		samples, metricsErr = s.samples(gctx, q)
		return nil
	})
	g.Go(func() error {
		var err error
		pods, err = s.podCounts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return inventory.Snapshot{}, err
	}

	if metricsErr != nil {
		log.Warn("node metrics unavailable; usage will be reported as missing", zap.Error(metricsErr))
	}

	snap := inventory.Snapshot{
		Nodes:      make([]inventory.Descriptor, 0, len(nodes)),
		Samples:    samples,
		PodCounts:  pods,
		MetricsErr: metricsErr,
		TakenAt:    s.now(),
	}
	for i := range nodes {
		snap.Nodes = append(snap.Nodes, DescriptorFromNode(&nodes[i]))
	}
	log.Debug("snapshot collected",
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("samples", len(samples)),
		zap.Int("podNodes", len(pods)),
	)
	return snap, nil
}

func (s *Source) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Source) samples(ctx context.Context, q Query) (map[string]inventory.UsageSample, error) {
	if s.Metrics == nil {
		return nil, ErrNoMetricsClient
	}
	list, err := s.Metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{LabelSelector: q.LabelSelector})
	if err != nil {
		return nil, fmt.Errorf("list node metrics (is metrics-server installed?): %w", err)
	}
	out := make(map[string]inventory.UsageSample, len(list.Items))
	for i := range list.Items {
		out[list.Items[i].Name] = SampleFromMetrics(&list.Items[i])
	}
	return out, nil
}

// terminalPods excludes pods that no longer occupy a node slot.
var terminalPods = fields.AndSelectors(
	fields.OneTermNotEqualSelector("status.phase", string(corev1.PodSucceeded)),
	fields.OneTermNotEqualSelector("status.phase", string(corev1.PodFailed)),
)

func (s *Source) podCounts(ctx context.Context) (map[string]int, error) {
	p := pager.New(pager.SimplePageFunc(func(opts metav1.ListOptions) (runtime.Object, error) {
		return s.Core.CoreV1().Pods(metav1.NamespaceAll).List(ctx, opts)
	}))
	p.PageSize = s.PageSize
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}

	counts := make(map[string]int)
	opts := metav1.ListOptions{FieldSelector: terminalPods.String()}
	err := p.EachListItem(ctx, opts, func(obj runtime.Object) error {
		pod, ok := obj.(*corev1.Pod)
		if !ok {
			return fmt.Errorf("unexpected object %T in pod list", obj)
		}
		// Field selectors are not honoured everywhere, so re-check here.
		if pod.Spec.NodeName == "" || pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed {
			return nil
		}
		counts[pod.Spec.NodeName]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pods: %w", err)
	}
	return counts, nil
}
