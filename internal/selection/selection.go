// Package selection filters and orders node records for display.
package selection

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inventory"
)

// FilterKind is a predicate applied to every record. Multiple filters combine
// with AND.
type FilterKind string

const (
	Tainted   FilterKind = "tainted"
	HighUsage FilterKind = "high-usage"
	NotReady  FilterKind = "not-ready"
	NoMetrics FilterKind = "no-metrics"
)

// Filters lists every supported filter in help order.
var Filters = []FilterKind{Tainted, HighUsage, NotReady, NoMetrics}

// SortKey orders the selected records.
type SortKey string

const (
	ByName   SortKey = "name"
	ByCPU    SortKey = "cpu"
	ByMemory SortKey = "memory"
	ByPods   SortKey = "pods"
)

// SortKeys lists every supported sort key in help order.
var SortKeys = []SortKey{ByCPU, ByMemory, ByPods, ByName}

// DefaultHighUsageThreshold is the percentage above which a node counts as
// highly utilised.
const DefaultHighUsageThreshold = 75.0

// ParseFilter validates a filter name. Underscores are accepted in place of
// dashes.
func ParseFilter(s string) (FilterKind, error) {
	v := FilterKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if slices.Contains(Filters, v) {
		return v, nil
	}
	return "", fmt.Errorf("unknown filter %q (valid: %s)", s, join(Filters))
}

// ParseSortKey validates a sort key. The empty string selects ByName.
func ParseSortKey(s string) (SortKey, error) {
	v := SortKey(strings.ToLower(strings.TrimSpace(s)))
	switch {
	case v == "":
		return ByName, nil
	case v == "mem":
		return ByMemory, nil
	case slices.Contains(SortKeys, v):
		return v, nil
	}
	return "", fmt.Errorf("unknown sort key %q (valid: %s)", s, join(SortKeys))
}

func join[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// Selector holds tunables for Select. The zero value uses
// DefaultHighUsageThreshold.
type Selector struct {
	HighUsageThreshold float64
}

// Select returns the records matching every filter, ordered by key.
func Select(records []inventory.Record, filters []FilterKind, key SortKey) []inventory.Record {
	return Selector{}.Select(records, filters, key)
}

// Select returns a new slice; records is left untouched.
func (s Selector) Select(records []inventory.Record, filters []FilterKind, key SortKey) []inventory.Record {
	out := make([]inventory.Record, 0, len(records))
	for _, r := range records {
		if s.keep(r, filters) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, comparator(key))
	return out
}

func (s Selector) threshold() float64 {
	if s.HighUsageThreshold <= 0 {
		return DefaultHighUsageThreshold
	}
	return s.HighUsageThreshold
}

func (s Selector) keep(r inventory.Record, filters []FilterKind) bool {
	for _, f := range filters {
		if !s.match(r, f) {
			return false
		}
	}
	return true
}

func (s Selector) match(r inventory.Record, f FilterKind) bool {
	switch f {
	case Tainted:
		return r.Tainted()
	case HighUsage:
		t := s.threshold()
		return r.CPUPct > t || r.MemPct > t
	case NotReady:
		return !r.Ready
	case NoMetrics:
		return !r.MetricsAvailable
	default:
		// Unknown kinds are rejected by ParseFilter; ignore them here.
		return true
	}
}

func comparator(key SortKey) func(a, b inventory.Record) int {
	var metric func(inventory.Record) float64
	switch key {
	case ByCPU:
		metric = func(r inventory.Record) float64 { return r.CPUPct }
	case ByMemory:
		metric = func(r inventory.Record) float64 { return r.MemPct }
	case ByPods:
		metric = func(r inventory.Record) float64 { return r.PodPct }
	}
	return func(a, b inventory.Record) int {
		if metric != nil {
			if c := cmp.Compare(metric(b), metric(a)); c != 0 {
				return c
			}
		}
		return strings.Compare(a.Name, b.Name)
	}
}
