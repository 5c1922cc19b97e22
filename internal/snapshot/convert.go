package snapshot

import (
	"sort"

	corev1 "k8s.io/api/core/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inventory"
)

// DescriptorFromNode reduces a Node to what the inspector needs. Missing
// resource entries become empty strings so the builder can report them.
func DescriptorFromNode(n *corev1.Node) inventory.Descriptor {
	d := inventory.Descriptor{
		Name:           n.Name,
		Unschedulable:  n.Spec.Unschedulable,
		CPUCapacity:    quantityString(n.Status.Capacity, corev1.ResourceCPU),
		CPUAllocatable: quantityString(n.Status.Allocatable, corev1.ResourceCPU),
		MemCapacity:    quantityString(n.Status.Capacity, corev1.ResourceMemory),
		MemAllocatable: quantityString(n.Status.Allocatable, corev1.ResourceMemory),
		MaxPods:        maxPods(n),
		CreatedAt:      n.CreationTimestamp.Time,
	}
	if len(n.Labels) > 0 {
		d.Labels = make(map[string]string, len(n.Labels))
		for k, v := range n.Labels {
			d.Labels[k] = v
		}
	}
	for _, t := range n.Spec.Taints {
		d.Taints = append(d.Taints, inventory.Taint{Key: t.Key, Value: t.Value, Effect: string(t.Effect)})
	}
	for _, c := range n.Status.Conditions {
		if c.Type == corev1.NodeReady && c.Status == corev1.ConditionTrue {
			d.Ready = true
		}
		d.Conditions = append(d.Conditions, inventory.Condition{
			Type:   string(c.Type),
			Status: string(c.Status),
			Reason: c.Reason,
		})
	}
	sort.SliceStable(d.Conditions, func(i, j int) bool { return d.Conditions[i].Type < d.Conditions[j].Type })
	return d
}

// SampleFromMetrics converts a metrics.k8s.io NodeMetrics object.
func SampleFromMetrics(m *metricsv1beta1.NodeMetrics) inventory.UsageSample {
	return inventory.UsageSample{
		CPU:       quantityString(m.Usage, corev1.ResourceCPU),
		Memory:    quantityString(m.Usage, corev1.ResourceMemory),
		Timestamp: m.Timestamp.Time,
		Window:    m.Window.Duration,
	}
}

func quantityString(rl corev1.ResourceList, name corev1.ResourceName) string {
	q, ok := rl[name]
	if !ok {
		return ""
	}
	return q.String()
}

// maxPods prefers allocatable pods, which is what the scheduler enforces.
func maxPods(n *corev1.Node) int64 {
	if q, ok := n.Status.Allocatable[corev1.ResourcePods]; ok {
		return q.Value()
	}
	if q, ok := n.Status.Capacity[corev1.ResourcePods]; ok {
		return q.Value()
	}
	return 0
}
