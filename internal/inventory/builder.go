package inventory

import (
	"fmt"
	"strings"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/quantity"
)

// Basis selects the denominator of the CPU and memory percentages.
type Basis string

const (
	BasisCapacity    Basis = "capacity"
	BasisAllocatable Basis = "allocatable"
)

// ParseBasis validates a basis name.
func ParseBasis(s string) (Basis, error) {
	switch Basis(strings.ToLower(strings.TrimSpace(s))) {
	case "", BasisCapacity:
		return BasisCapacity, nil
	case BasisAllocatable:
		return BasisAllocatable, nil
	default:
		return "", fmt.Errorf("unsupported basis %q (supported: capacity, allocatable)", s)
	}
}

// DefaultAutoscalerPatterns are matched case-insensitively against label keys.
var DefaultAutoscalerPatterns = []string{"autoscal", "scale"}

const reasonNoSample = "no metrics sample"

// Builder turns descriptors into records. The zero value divides by capacity
// and uses DefaultAutoscalerPatterns.
type Builder struct {
	Basis             Basis
	AutoscalerPattern []string
}

// Build joins one node's descriptor, its usage sample (nil when metrics are
// unavailable) and its pod count into a Record.
//
// A missing or unparseable usage sample yields zero usage with
// MetricsAvailable=false. A non-positive or unparseable CPU/memory capacity
// returns a *CapacityError.
func (b Builder) Build(d Descriptor, sample *UsageSample, podCount int) (Record, error) {
	cpuCap, err := capacity(d.Name, "cpu", d.CPUCapacity, quantity.CPUToMillicores)
	if err != nil {
		return Record{}, err
	}
	memCap, err := capacity(d.Name, "memory", d.MemCapacity, quantity.MemToBytes)
	if err != nil {
		return Record{}, err
	}
	cpuAlloc := allocatable(d.CPUAllocatable, cpuCap, quantity.CPUToMillicores)
	memAlloc := allocatable(d.MemAllocatable, memCap, quantity.MemToBytes)

	if podCount < 0 {
		podCount = 0
	}
	rec := Record{
		Name:                d.Name,
		Ready:               d.Ready,
		Unschedulable:       d.Unschedulable,
		Taints:              append([]Taint(nil), d.Taints...),
		Conditions:          append([]Condition(nil), d.Conditions...),
		PodCount:            podCount,
		PodCapacity:         max(d.MaxPods, 0),
		CPUCapacityMilli:    cpuCap,
		CPUAllocatableMilli: cpuAlloc,
		MemCapacityBytes:    memCap,
		MemAllocatableBytes: memAlloc,
	}
	rec.AutoscalerLabels = b.autoscalerLabels(d.Labels)
	rec.Autoscaled = len(rec.AutoscalerLabels) > 0

	if sample == nil {
		rec.UnavailableReason = reasonNoSample
	} else if cpu, mem, err := parseSample(*sample); err != nil {
		rec.UnavailableReason = err.Error()
	} else {
		rec.CPUUsedMilli = cpu
		rec.MemUsedBytes = mem
		rec.MetricsAvailable = true
		rec.SampledAt = sample.Timestamp
	}

	rec.CPUPct = percent(rec.CPUUsedMilli, rec.CPUBasisMilli(b.Basis))
	rec.MemPct = percent(rec.MemUsedBytes, rec.MemBasisBytes(b.Basis))
	rec.PodPct = percent(int64(rec.PodCount), rec.PodCapacity)
	return rec, nil
}

// BuildAll builds a record for every node in the snapshot. Nodes that fail
// are left out of the records and returned as failures, in input order.
func (b Builder) BuildAll(snap Snapshot) ([]Record, []BuildFailure) {
	records := make([]Record, 0, len(snap.Nodes))
	var failures []BuildFailure
	for _, d := range snap.Nodes {
		var sample *UsageSample
		if s, ok := snap.Samples[d.Name]; ok {
			sample = &s
		}
		rec, err := b.Build(d, sample, snap.PodCounts[d.Name])
		if err != nil {
			failures = append(failures, BuildFailure{Node: d.Name, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, failures
}

func (b Builder) autoscalerLabels(labels map[string]string) map[string]string {
	patterns := b.AutoscalerPattern
	if patterns == nil {
		patterns = DefaultAutoscalerPatterns
	}
	var out map[string]string
	for k, v := range labels {
		lk := strings.ToLower(k)
		for _, p := range patterns {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" || !strings.Contains(lk, p) {
				continue
			}
			if out == nil {
				out = make(map[string]string)
			}
			out[k] = v
			break
		}
	}
	return out
}

func capacity(node, resource, raw string, parse func(string) (int64, error)) (int64, error) {
	v, err := parse(raw)
	if err != nil {
		return 0, &CapacityError{Node: node, Resource: resource, Value: raw, Err: err}
	}
	if v <= 0 {
		return 0, &CapacityError{Node: node, Resource: resource, Value: raw}
	}
	return v, nil
}

// allocatable falls back to capacity when the node does not report a usable
// allocatable value.
func allocatable(raw string, capacity int64, parse func(string) (int64, error)) int64 {
	v, err := parse(raw)
	if err != nil || v <= 0 {
		return capacity
	}
	return v
}

func parseSample(s UsageSample) (int64, int64, error) {
	cpu, err := quantity.CPUToMillicores(s.CPU)
	if err != nil {
		return 0, 0, fmt.Errorf("cpu usage: %w", err)
	}
	mem, err := quantity.MemToBytes(s.Memory)
	if err != nil {
		return 0, 0, fmt.Errorf("memory usage: %w", err)
	}
	return cpu, mem, nil
}

// percent returns used/total*100 clamped to [0, 100]; a non-positive total
// yields 0.
func percent(used, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(used) / float64(total) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
