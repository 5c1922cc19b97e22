// Package render turns node records and cluster totals into a
// terminal-agnostic document of toned text.
package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inventory"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/quantity"
)

const (
	DefaultWidth = 72
	MinWidth     = 32
	Title        = "OKE Node Inspector"

	summaryLabelWidth = 16
	nodeLabelWidth    = 11
)

// Report is everything one rendered view shows.
type Report struct {
	Cluster    string
	Aggregate  inventory.ClusterAggregate
	Nodes      []inventory.Record
	Skipped    []inventory.BuildFailure
	MetricsErr string
}

// Renderer lays out reports at a fixed column width.
type Renderer struct {
	Width      int
	Thresholds Thresholds
	Verbose    bool
}

// Render is the plain-text form of a summary followed by one box per record.
func Render(agg inventory.ClusterAggregate, records []inventory.Record, width int) string {
	return Renderer{Width: width}.Render(Report{Aggregate: agg, Nodes: records}).String()
}

func (r Renderer) width() int {
	switch {
	case r.Width <= 0:
		return DefaultWidth
	case r.Width < MinWidth:
		return MinWidth
	default:
		return r.Width
	}
}

// Render lays out rep. Records are shown in the order given.
func (r Renderer) Render(rep Report) Document {
	w := r.width()
	var doc Document
	doc = append(doc, Line{})
	doc = append(doc, banner(w, Title)...)
	doc = append(doc, Line{})
	doc = append(doc, r.summary(rep, w)...)
	if len(rep.Skipped) > 0 {
		doc = append(doc, Line{})
		doc = append(doc, r.skipped(rep.Skipped, w)...)
	}
	doc = append(doc, Line{})

	switch {
	case rep.Aggregate.Nodes == 0 && len(rep.Nodes) == 0:
		doc = append(doc, Line{{Text: "No nodes found.", Tone: ToneMuted}})
	case len(rep.Nodes) == 0:
		doc = append(doc, Line{{Text: "No nodes match the selected filters.", Tone: ToneMuted}})
	}
	for _, rec := range rep.Nodes {
		doc = append(doc, r.node(rec, w)...)
	}
	return doc
}

func (r Renderer) tone(pct float64) Tone {
	return r.Thresholds.BandFor(pct).Tone()
}

func (r Renderer) summary(rep Report, w int) Document {
	agg := rep.Aggregate
	cluster := rep.Cluster
	if strings.TrimSpace(cluster) == "" {
		cluster = "current"
	}
	tainted := Segment{Text: fmt.Sprint(agg.TaintedNodes), Tone: ToneMuted}
	if agg.TaintedNodes > 0 {
		tainted.Tone = ToneWarn
	}
	metrics := Segment{Text: "available", Tone: ToneReady}
	if agg.NoMetricsNodes > 0 {
		metrics = Segment{Text: fmt.Sprintf("missing for %d of %d nodes", agg.NoMetricsNodes, agg.Nodes), Tone: ToneWarn}
	}

	rows := [][]Segment{
		{{Text: "Cluster"}, {Text: cluster, Tone: ToneAccent}},
		{{Text: "Total Nodes"}, {Text: fmt.Sprint(agg.Nodes)}},
		{{Text: "Ready Nodes"}, {Text: fmt.Sprint(agg.ReadyNodes), Tone: ToneReady}, {Text: fmt.Sprintf(" / %d", agg.Nodes)}},
		{{Text: "Tainted Nodes"}, tainted},
		{{Text: "Autoscaled"}, {Text: fmt.Sprint(agg.AutoscaledNodes)}},
	}
	if agg.Nodes > 0 {
		rows = append(rows, []Segment{{Text: "Metrics"}, metrics})
	}
	if rep.MetricsErr != "" {
		rows = append(rows, []Segment{{Text: ""}, {Text: rep.MetricsErr, Tone: ToneMuted}})
	}
	basis := ""
	if agg.Basis == inventory.BasisAllocatable {
		basis = " allocatable"
	}
	rows = append(rows,
		nil,
		[]Segment{
			{Text: "Cluster CPU"},
			{Text: fmt.Sprintf("%.1f%%", agg.CPUPct), Tone: r.tone(agg.CPUPct)},
			{Text: fmt.Sprintf(" (%s / %s%s)", quantity.FormatMillicores(agg.CPUUsedMilli), quantity.FormatMillicores(agg.CPUCapacityMilli), basis)},
		},
		[]Segment{
			{Text: "Cluster Memory"},
			{Text: fmt.Sprintf("%.1f%%", agg.MemPct), Tone: r.tone(agg.MemPct)},
			{Text: fmt.Sprintf(" (%s / %s%s)", quantity.FormatBytes(agg.MemUsedBytes), quantity.FormatBytes(agg.MemCapacityBytes), basis)},
		},
		[]Segment{
			{Text: "Total Pods"},
			{Text: fmt.Sprint(agg.Pods), Tone: ToneAccent},
			{Text: fmt.Sprintf(" / %d", agg.PodCapacity)},
		},
	)

	doc := make(Document, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			doc = append(doc, Line{})
			continue
		}
		line := append([]Segment{{Text: pad(row[0].Text, summaryLabelWidth)}}, row[1:]...)
		doc = append(doc, labelled(line, w))
	}
	return doc
}

// labelled caps an unboxed line at w runes.
func labelled(segs []Segment, w int) Line {
	if width(segs) <= w {
		return segs
	}
	return fit(segs, w)
}

func (r Renderer) skipped(failures []inventory.BuildFailure, w int) Document {
	doc := Document{labelled([]Segment{
		{Text: pad("Skipped Nodes", summaryLabelWidth)},
		{Text: fmt.Sprint(len(failures)), Tone: ToneWarn},
	}, w)}
	for _, f := range failures {
		doc = append(doc, labelled([]Segment{
			{Text: "  - "},
			{Text: f.Node, Tone: ToneWarn},
			{Text: ": " + f.Reason(), Tone: ToneMuted},
		}, w))
	}
	return doc
}

func (r Renderer) node(rec inventory.Record, w int) Document {
	status := Segment{Text: "Ready", Tone: ToneReady}
	border := ToneReady
	if !rec.Ready {
		status = Segment{Text: "NotReady", Tone: ToneNotReady}
		border = ToneNotReady
	}
	b := newBox(w, rec.Name, ToneAccent, border)

	row := func(label string, segs ...Segment) {
		b.row(append([]Segment{{Text: pad(label, nodeLabelWidth), Tone: ToneMuted}}, segs...)...)
	}

	st := []Segment{status}
	if rec.Unschedulable {
		st = append(st, Segment{Text: ",SchedulingDisabled", Tone: ToneWarn})
	}
	row("Status", st...)
	row("Pods",
		Segment{Text: fmt.Sprintf("%d/%d ", rec.PodCount, rec.PodCapacity)},
		Segment{Text: fmt.Sprintf("(%.0f%%)", rec.PodPct), Tone: r.tone(rec.PodPct)},
	)
	row("CPU", r.usage(rec,
		quantity.FormatMillicores(rec.CPUUsedMilli),
		quantity.FormatMillicores(rec.CPUCapacityMilli),
		rec.CPUPct)...)
	row("Memory", r.usage(rec,
		quantity.FormatBytes(rec.MemUsedBytes),
		quantity.FormatBytes(rec.MemCapacityBytes),
		rec.MemPct)...)

	if r.Verbose {
		row("Alloc CPU", Segment{Text: quantity.FormatMillicores(rec.CPUAllocatableMilli)})
		row("Alloc Mem", Segment{Text: quantity.FormatBytes(rec.MemAllocatableBytes)})
		if !rec.MetricsAvailable && rec.UnavailableReason != "" {
			row("Metrics", Segment{Text: rec.UnavailableReason, Tone: ToneMuted})
		}
	}

	for i, t := range rec.Taints {
		label := ""
		if i == 0 {
			label = "Taints"
		}
		row(label, Segment{Text: t.String(), Tone: ToneNotReady})
	}

	if len(rec.AutoscalerLabels) > 0 {
		keys := make([]string, 0, len(rec.AutoscalerLabels))
		for k := range rec.AutoscalerLabels {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for i, k := range keys {
			label := ""
			if i == 0 {
				label = "Autoscaler"
			}
			row(label, Segment{Text: k + "=", Tone: ToneMuted}, Segment{Text: rec.AutoscalerLabels[k], Tone: ToneAccent})
		}
	}

	if r.Verbose {
		abnormal := abnormalConditions(rec.Conditions)
		if len(abnormal) == 0 {
			row("Conditions", Segment{Text: "healthy", Tone: ToneMuted})
		}
		for i, c := range abnormal {
			label := ""
			if i == 0 {
				label = "Conditions"
			}
			text := c.Type + "=" + c.Status
			if c.Reason != "" {
				text += " (" + c.Reason + ")"
			}
			row(label, Segment{Text: text, Tone: ToneWarn})
		}
	}
	return b.close()
}

func (r Renderer) usage(rec inventory.Record, used, capacity string, pct float64) []Segment {
	segs := []Segment{
		{Text: used + "/" + capacity + " "},
		{Text: fmt.Sprintf("(%.0f%%)", pct), Tone: r.tone(pct)},
	}
	if !rec.MetricsAvailable {
		segs = append(segs, Segment{Text: " no metrics", Tone: ToneMuted})
	}
	return segs
}

// abnormalConditions returns conditions that deviate from a healthy node:
// Ready not True, or any pressure/unavailable condition True.
func abnormalConditions(conds []inventory.Condition) []inventory.Condition {
	var out []inventory.Condition
	for _, c := range conds {
		healthy := c.Status == "False"
		if c.Type == "Ready" {
			healthy = c.Status == "True"
		}
		if !healthy {
			out = append(out, c)
		}
	}
	return out
}
