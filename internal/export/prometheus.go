package export

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inspect"
)

const namespace = "okni"

type gauges struct {
	cpuPct, memPct, podPct         *prometheus.GaugeVec
	cpuUsed, cpuCap                *prometheus.GaugeVec
	memUsed, memCap                *prometheus.GaugeVec
	pods, podCap                   *prometheus.GaugeVec
	ready, tainted, metricsPresent *prometheus.GaugeVec

	clusterCPUPct, clusterMemPct *prometheus.GaugeVec
	clusterNodes, clusterReady   *prometheus.GaugeVec
	skipped                      *prometheus.GaugeVec
}

func newGauges(reg prometheus.Registerer) *gauges {
	f := promauto.With(reg)
	node := func(name, help string) *prometheus.GaugeVec {
		return f.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Subsystem: "node", Name: name, Help: help}, []string{"cluster", "node"})
	}
	cluster := func(name, help string) *prometheus.GaugeVec {
		return f.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Subsystem: "cluster", Name: name, Help: help}, []string{"cluster"})
	}
	return &gauges{
		cpuPct:         node("cpu_utilization_percent", "Node CPU usage as a percentage of the basis."),
		memPct:         node("memory_utilization_percent", "Node memory usage as a percentage of the basis."),
		podPct:         node("pod_utilization_percent", "Scheduled pods as a percentage of the node's pod capacity."),
		cpuUsed:        node("cpu_usage_millicores", "Node CPU usage in millicores."),
		cpuCap:         node("cpu_capacity_millicores", "Node CPU capacity in millicores."),
		memUsed:        node("memory_usage_bytes", "Node memory usage in bytes."),
		memCap:         node("memory_capacity_bytes", "Node memory capacity in bytes."),
		pods:           node("pods", "Non-terminal pods scheduled on the node."),
		podCap:         node("pod_capacity", "Maximum pods the node accepts."),
		ready:          node("ready", "1 when the node is Ready."),
		tainted:        node("tainted", "1 when the node carries at least one taint."),
		metricsPresent: node("metrics_available", "1 when a usage sample was available for the node."),
		clusterCPUPct:  cluster("cpu_utilization_percent", "Cluster CPU usage as a percentage of total capacity."),
		clusterMemPct:  cluster("memory_utilization_percent", "Cluster memory usage as a percentage of total capacity."),
		clusterNodes:   cluster("nodes", "Nodes included in the report."),
		clusterReady:   cluster("ready_nodes", "Ready nodes included in the report."),
		skipped:        cluster("skipped_nodes", "Nodes left out because they reported unusable capacity."),
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// WritePrometheus writes res in the text exposition format, suitable for the
// node-exporter textfile collector. Usage gauges are omitted for nodes
// without a sample.
func WritePrometheus(w io.Writer, cluster string, res inspect.Result) error {
	reg := prometheus.NewRegistry()
	g := newGauges(reg)

	for _, r := range res.Nodes {
		l := prometheus.Labels{"cluster": cluster, "node": r.Name}
		g.cpuCap.With(l).Set(float64(r.CPUCapacityMilli))
		g.memCap.With(l).Set(float64(r.MemCapacityBytes))
		g.pods.With(l).Set(float64(r.PodCount))
		g.podCap.With(l).Set(float64(r.PodCapacity))
		g.podPct.With(l).Set(r.PodPct)
		g.ready.With(l).Set(boolGauge(r.Ready))
		g.tainted.With(l).Set(boolGauge(r.Tainted()))
		g.metricsPresent.With(l).Set(boolGauge(r.MetricsAvailable))
		if r.MetricsAvailable {
			g.cpuUsed.With(l).Set(float64(r.CPUUsedMilli))
			g.memUsed.With(l).Set(float64(r.MemUsedBytes))
			g.cpuPct.With(l).Set(r.CPUPct)
			g.memPct.With(l).Set(r.MemPct)
		}
	}
	cl := prometheus.Labels{"cluster": cluster}
	g.clusterCPUPct.With(cl).Set(res.Aggregate.CPUPct)
	g.clusterMemPct.With(cl).Set(res.Aggregate.MemPct)
	g.clusterNodes.With(cl).Set(float64(res.Aggregate.Nodes))
	g.clusterReady.With(cl).Set(float64(res.Aggregate.ReadyNodes))
	g.skipped.With(cl).Set(float64(len(res.Skipped)))

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
