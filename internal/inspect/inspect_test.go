package inspect

import (
	"errors"
	"testing"
	"time"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inventory"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(name, cpu string, ready bool) inventory.Descriptor {
	return inventory.Descriptor{
		Name: name, Ready: ready,
		CPUCapacity: cpu, CPUAllocatable: cpu,
		MemCapacity: "4Gi", MemAllocatable: "4Gi",
		MaxPods: 110,
	}
}

func TestInspect(t *testing.T) {
	taken := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := inventory.Snapshot{
		Nodes: []inventory.Descriptor{
			node("c", "1000m", true),
			node("a", "1000m", true),
			node("b", "2000m", false),
			node("broken", "0", true),
		},
		Samples: map[string]inventory.UsageSample{
			"a": {CPU: "800m", Memory: "1Gi"},
			"b": {CPU: "1000m", Memory: "1Gi"},
			"c": {CPU: "200m", Memory: "1Gi"},
		},
		PodCounts: map[string]int{"a": 1, "b": 2, "c": 3},
		TakenAt:   taken,
	}

	res := Inspect(snap, Options{SortBy: selection.ByCPU})
	assert.Equal(t, 3, res.Aggregate.Nodes)
	assert.Equal(t, 2, res.Aggregate.ReadyNodes)
	assert.InDelta(t, 50.0, res.Aggregate.CPUPct, 1e-9)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "broken", res.Skipped[0].Node)
	assert.Equal(t, taken, res.TakenAt)

	var got []string
	for _, r := range res.Nodes {
		got = append(got, r.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	filtered := Inspect(snap, Options{Filters: []selection.FilterKind{selection.HighUsage}})
	require.Len(t, filtered.Nodes, 1)
	assert.Equal(t, "a", filtered.Nodes[0].Name)
	assert.Equal(t, 3, filtered.Aggregate.Nodes, "filters do not change the cluster totals")
}

func TestInspectMetricsUnavailable(t *testing.T) {
	snap := inventory.Snapshot{
		Nodes:      []inventory.Descriptor{node("a", "1", true)},
		MetricsErr: errors.New("the server could not find the requested resource"),
	}
	res := Inspect(snap, Options{})
	assert.Equal(t, "the server could not find the requested resource", res.MetricsErr)
	require.Len(t, res.Nodes, 1)
	assert.False(t, res.Nodes[0].MetricsAvailable)

	rep := res.Report("oke-prod")
	assert.Equal(t, "oke-prod", rep.Cluster)
	assert.Equal(t, res.MetricsErr, rep.MetricsErr)
	assert.Equal(t, res.Nodes, rep.Nodes)
}

func TestInspectEmptyCluster(t *testing.T) {
	res := Inspect(inventory.Snapshot{}, Options{})
	assert.Equal(t, inventory.ClusterAggregate{}, res.Aggregate)
	assert.Empty(t, res.Nodes)
	assert.Empty(t, res.Skipped)
}
