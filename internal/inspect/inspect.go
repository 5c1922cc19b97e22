// Package inspect runs the record, aggregate and selection stages over one
// snapshot.
package inspect

import (
	"time"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inventory"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/render"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/selection"
)

// Options configure a single inspection.
type Options struct {
	Builder  inventory.Builder
	Selector selection.Selector
	Filters  []selection.FilterKind
	SortBy   selection.SortKey
}

// Result is the outcome of one inspection. Aggregate covers every node that
// could be built, regardless of filters; Nodes holds the selected subset in
// display order.
type Result struct {
	Aggregate  inventory.ClusterAggregate `json:"summary" yaml:"summary"`
	Nodes      []inventory.Record         `json:"nodes" yaml:"nodes"`
	Skipped    []inventory.BuildFailure   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	MetricsErr string                     `json:"metricsError,omitempty" yaml:"metricsError,omitempty"`
	TakenAt    time.Time                  `json:"takenAt" yaml:"takenAt"`
}

// Inspect builds, aggregates and selects. It performs no I/O.
func Inspect(snap inventory.Snapshot, opts Options) Result {
	records, skipped := opts.Builder.BuildAll(snap)
	res := Result{
		Aggregate: inventory.AggregateOn(records, opts.Builder.Basis),
		Nodes:     opts.Selector.Select(records, opts.Filters, opts.SortBy),
		Skipped:   skipped,
		TakenAt:   snap.TakenAt,
	}
	if snap.MetricsErr != nil {
		res.MetricsErr = snap.MetricsErr.Error()
	}
	return res
}

// Report converts the result into the renderer's input.
func (r Result) Report(cluster string) render.Report {
	return render.Report{
		Cluster:    cluster,
		Aggregate:  r.Aggregate,
		Nodes:      r.Nodes,
		Skipped:    r.Skipped,
		MetricsErr: r.MetricsErr,
	}
}
