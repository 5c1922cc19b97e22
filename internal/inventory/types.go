// Package inventory turns raw node, pod-count and usage inputs into
// normalized per-node records and folds them into cluster totals.
//
// Everything here is pure: no I/O, no goroutines, no state between calls.
package inventory

import (
	"fmt"
	"time"
)

// Taint mirrors a node taint.
type Taint struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Effect string `json:"effect" yaml:"effect"`
}

// String formats the taint as kubectl describe does: key=value:Effect, or
// key:Effect when the value is empty.
func (t Taint) String() string {
	if t.Value == "" {
		return fmt.Sprintf("%s:%s", t.Key, t.Effect)
	}
	return fmt.Sprintf("%s=%s:%s", t.Key, t.Value, t.Effect)
}

// Condition is a node condition reduced to what the report shows.
type Condition struct {
	Type   string `json:"type" yaml:"type"`
	Status string `json:"status" yaml:"status"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Descriptor is the static description of one node as reported by the API
// server. Resource values are raw quantity strings.
type Descriptor struct {
	Name           string
	Ready          bool
	Unschedulable  bool
	Taints         []Taint
	Labels         map[string]string
	Conditions     []Condition
	CPUCapacity    string
	CPUAllocatable string
	MemCapacity    string
	MemAllocatable string
	MaxPods        int64
	CreatedAt      time.Time
}

// UsageSample is one metrics.k8s.io reading for a node.
type UsageSample struct {
	CPU       string
	Memory    string
	Timestamp time.Time
	Window    time.Duration
}

// Snapshot is everything the core needs for one inspection run, captured at
// a single point in time. Samples and PodCounts are keyed by node name;
// entries for names not present in Nodes are ignored.
type Snapshot struct {
	Nodes     []Descriptor
	Samples   map[string]UsageSample
	PodCounts map[string]int
	// MetricsErr explains why samples are missing cluster-wide, if they are.
	MetricsErr error
	TakenAt    time.Time
}

// Record is the normalized, immutable view of one node.
type Record struct {
	Name             string            `json:"name" yaml:"name"`
	Ready            bool              `json:"ready" yaml:"ready"`
	Unschedulable    bool              `json:"unschedulable,omitempty" yaml:"unschedulable,omitempty"`
	Taints           []Taint           `json:"taints" yaml:"taints"`
	Autoscaled       bool              `json:"autoscaled" yaml:"autoscaled"`
	AutoscalerLabels map[string]string `json:"autoscalerLabels,omitempty" yaml:"autoscalerLabels,omitempty"`
	Conditions       []Condition       `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	PodCount    int   `json:"podCount" yaml:"podCount"`
	PodCapacity int64 `json:"podCapacity" yaml:"podCapacity"`

	CPUUsedMilli        int64 `json:"cpuUsedMillicores" yaml:"cpuUsedMillicores"`
	CPUCapacityMilli    int64 `json:"cpuCapacityMillicores" yaml:"cpuCapacityMillicores"`
	CPUAllocatableMilli int64 `json:"cpuAllocatableMillicores" yaml:"cpuAllocatableMillicores"`
	MemUsedBytes        int64 `json:"memUsedBytes" yaml:"memUsedBytes"`
	MemCapacityBytes    int64 `json:"memCapacityBytes" yaml:"memCapacityBytes"`
	MemAllocatableBytes int64 `json:"memAllocatableBytes" yaml:"memAllocatableBytes"`

	CPUPct float64 `json:"cpuPercent" yaml:"cpuPercent"`
	MemPct float64 `json:"memPercent" yaml:"memPercent"`
	PodPct float64 `json:"podPercent" yaml:"podPercent"`

	MetricsAvailable  bool      `json:"metricsAvailable" yaml:"metricsAvailable"`
	UnavailableReason string    `json:"unavailableReason,omitempty" yaml:"unavailableReason,omitempty"`
	SampledAt         time.Time `json:"sampledAt,omitempty" yaml:"sampledAt,omitempty"`
}

// Tainted reports whether the node carries at least one taint.
func (r Record) Tainted() bool { return len(r.Taints) > 0 }

// CPUBasisMilli returns the denominator used for CPUPct.
func (r Record) CPUBasisMilli(basis Basis) int64 {
	if basis == BasisAllocatable {
		return r.CPUAllocatableMilli
	}
	return r.CPUCapacityMilli
}

// MemBasisBytes returns the denominator used for MemPct.
func (r Record) MemBasisBytes(basis Basis) int64 {
	if basis == BasisAllocatable {
		return r.MemAllocatableBytes
	}
	return r.MemCapacityBytes
}

// CapacityError means a node reported a CPU or memory capacity that cannot be
// used as a divisor. It points at corrupt upstream data, so it is never
// turned into a zero-usage record.
type CapacityError struct {
	Node     string
	Resource string
	Value    string
	Err      error
}

func (e *CapacityError) Error() string {
	v := e.Value
	if v == "" {
		v = "<missing>"
	}
	if e.Err != nil {
		return fmt.Sprintf("node %s: invalid %s capacity %s: %v", e.Node, e.Resource, v, e.Err)
	}
	return fmt.Sprintf("node %s: %s capacity %s is not positive", e.Node, e.Resource, v)
}

func (e *CapacityError) Unwrap() error { return e.Err }

// BuildFailure identifies a node that was excluded from the report.
type BuildFailure struct {
	Node string `json:"node" yaml:"node"`
	Err  error  `json:"-" yaml:"-"`
}

// Reason returns the error text, or "" when Err is nil.
func (f BuildFailure) Reason() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}
