package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	testingk8s "k8s.io/client-go/testing"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"
)

func testNode(name string, ready bool, lbls map[string]string) *corev1.Node {
	status := corev1.ConditionFalse
	if ready {
		status = corev1.ConditionTrue
	}
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: lbls},
		Spec: corev1.NodeSpec{
			Taints: []corev1.Taint{{Key: "dedicated", Value: "gpu", Effect: corev1.TaintEffectNoSchedule}},
		},
		Status: corev1.NodeStatus{
			Capacity: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("2"),
				corev1.ResourceMemory: resource.MustParse("16Gi"),
				corev1.ResourcePods:   resource.MustParse("110"),
			},
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("1900m"),
				corev1.ResourceMemory: resource.MustParse("15Gi"),
				corev1.ResourcePods:   resource.MustParse("100"),
			},
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: status, Reason: "KubeletReady"},
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionFalse},
			},
		},
	}
}

func testPod(name, node string, phase corev1.PodPhase) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Spec:       corev1.PodSpec{NodeName: node},
		Status:     corev1.PodStatus{Phase: phase},
	}
}

func metricsClient(items ...metricsv1beta1.NodeMetrics) *metricsfake.Clientset {
	mc := metricsfake.NewSimpleClientset()
	mc.PrependReactor("list", "nodes", func(action testingk8s.Action) (bool, runtime.Object, error) {
		return true, &metricsv1beta1.NodeMetricsList{Items: items}, nil
	})
	return mc
}

func nodeMetrics(name, cpu, mem string, ts time.Time) metricsv1beta1.NodeMetrics {
	return metricsv1beta1.NodeMetrics{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Timestamp:  metav1.NewTime(ts),
		Window:     metav1.Duration{Duration: 30 * time.Second},
		Usage: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(cpu),
			corev1.ResourceMemory: resource.MustParse(mem),
		},
	}
}

func TestFetch(t *testing.T) {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	core := fake.NewSimpleClientset(
		testNode("node-a", true, nil),
		testNode("node-b", false, nil),
		testPod("p1", "node-a", corev1.PodRunning),
		testPod("p2", "node-a", corev1.PodPending),
		testPod("p3", "node-a", corev1.PodSucceeded),
		testPod("p4", "node-b", corev1.PodFailed),
		testPod("p5", "node-b", corev1.PodRunning),
		testPod("unscheduled", "", corev1.PodPending),
	)
	src := &Source{
		Core:    core,
		Metrics: metricsClient(nodeMetrics("node-a", "450m", "2Gi", ts)),
		Now:     func() time.Time { return ts },
	}

	snap, err := src.Fetch(context.Background(), Query{})
	require.NoError(t, err)
	require.NoError(t, snap.MetricsErr)
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, ts, snap.TakenAt)
	assert.Equal(t, map[string]int{"node-a": 2, "node-b": 1}, snap.PodCounts)

	require.Contains(t, snap.Samples, "node-a")
	assert.Equal(t, "450m", snap.Samples["node-a"].CPU)
	assert.Equal(t, "2Gi", snap.Samples["node-a"].Memory)
	assert.Equal(t, 30*time.Second, snap.Samples["node-a"].Window)
	assert.NotContains(t, snap.Samples, "node-b")
}

func TestFetchToleratesMetricsFailure(t *testing.T) {
	core := fake.NewSimpleClientset(testNode("node-a", true, nil))
	mc := metricsfake.NewSimpleClientset()
	mc.PrependReactor("list", "nodes", func(action testingk8s.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("the server could not find the requested resource")
	})
	zc, logs := observer.New(zap.WarnLevel)

	snap, err := (&Source{Core: core, Metrics: mc, Log: zap.New(zc)}).Fetch(context.Background(), Query{})
	require.NoError(t, err)
	require.Error(t, snap.MetricsErr)
	assert.Contains(t, snap.MetricsErr.Error(), "metrics-server")
	assert.Len(t, snap.Nodes, 1)
	assert.Empty(t, snap.Samples)
	assert.Equal(t, 1, logs.FilterMessageSnippet("node metrics unavailable").Len())
}

func TestFetchWithoutMetricsClient(t *testing.T) {
	core := fake.NewSimpleClientset(testNode("node-a", true, nil))
	snap, err := (&Source{Core: core}).Fetch(context.Background(), Query{})
	require.NoError(t, err)
	assert.ErrorIs(t, snap.MetricsErr, ErrNoMetricsClient)
}

func TestFetchFailsWhenNodesCannotBeListed(t *testing.T) {
	core := fake.NewSimpleClientset()
	core.PrependReactor("list", "nodes", func(action testingk8s.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("forbidden")
	})
	_, err := (&Source{Core: core, Metrics: metricsClient()}).Fetch(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list nodes")
}

func TestFetchFailsWhenPodsCannotBeListed(t *testing.T) {
	core := fake.NewSimpleClientset(testNode("node-a", true, nil))
	core.PrependReactor("list", "pods", func(action testingk8s.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("forbidden")
	})
	_, err := (&Source{Core: core, Metrics: metricsClient()}).Fetch(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list pods")
}

func TestFetchLabelSelector(t *testing.T) {
	core := fake.NewSimpleClientset(
		testNode("pool1-a", true, map[string]string{"pool": "pool1"}),
		testNode("pool2-a", true, map[string]string{"pool": "pool2"}),
	)
	snap, err := (&Source{Core: core, Metrics: metricsClient()}).Fetch(context.Background(), Query{LabelSelector: "pool=pool1"})
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 1)
	assert.Equal(t, "pool1-a", snap.Nodes[0].Name)

	_, err = (&Source{Core: core}).Fetch(context.Background(), Query{LabelSelector: "pool in ("})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid label selector")
}

func TestFetchRequiresCoreClient(t *testing.T) {
	_, err := (&Source{}).Fetch(context.Background(), Query{})
	assert.Error(t, err)
}

func TestDescriptorFromNode(t *testing.T) {
	n := testNode("node-a", true, map[string]string{"cluster-autoscaler.kubernetes.io/enabled": "true"})
	n.Spec.Unschedulable = true
	d := DescriptorFromNode(n)

	assert.Equal(t, "node-a", d.Name)
	assert.True(t, d.Ready)
	assert.True(t, d.Unschedulable)
	assert.Equal(t, "2", d.CPUCapacity)
	assert.Equal(t, "1900m", d.CPUAllocatable)
	assert.Equal(t, "16Gi", d.MemCapacity)
	assert.Equal(t, "15Gi", d.MemAllocatable)
	assert.Equal(t, int64(100), d.MaxPods)
	require.Len(t, d.Taints, 1)
	assert.Equal(t, "dedicated=gpu:NoSchedule", d.Taints[0].String())
	assert.Equal(t, "true", d.Labels["cluster-autoscaler.kubernetes.io/enabled"])
	require.Len(t, d.Conditions, 2)
	assert.Equal(t, "MemoryPressure", d.Conditions[0].Type)

	n.Labels["mutated"] = "yes"
	assert.NotContains(t, d.Labels, "mutated")
}

func TestDescriptorFromNodeMissingResources(t *testing.T) {
	d := DescriptorFromNode(&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "bare"}})
	assert.False(t, d.Ready)
	assert.Empty(t, d.CPUCapacity)
	assert.Empty(t, d.MemCapacity)
	assert.Zero(t, d.MaxPods)
}

func TestSampleFromMetrics(t *testing.T) {
	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	m := nodeMetrics("n", "123456789n", "1048576Ki", ts)
	s := SampleFromMetrics(&m)
	assert.Equal(t, "123456789n", s.CPU)
	assert.Equal(t, "1Gi", s.Memory)
	assert.True(t, s.Timestamp.Equal(ts))
}
