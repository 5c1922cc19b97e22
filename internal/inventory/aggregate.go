package inventory

// ClusterAggregate holds cluster-wide totals for one snapshot.
type ClusterAggregate struct {
	Nodes           int `json:"nodes" yaml:"nodes"`
	ReadyNodes      int `json:"readyNodes" yaml:"readyNodes"`
	TaintedNodes    int `json:"taintedNodes" yaml:"taintedNodes"`
	AutoscaledNodes int `json:"autoscaledNodes" yaml:"autoscaledNodes"`
	NoMetricsNodes  int `json:"noMetricsNodes" yaml:"noMetricsNodes"`

	Pods        int     `json:"pods" yaml:"pods"`
	PodCapacity int64   `json:"podCapacity" yaml:"podCapacity"`
	PodPct      float64 `json:"podPercent" yaml:"podPercent"`

	CPUUsedMilli     int64   `json:"cpuUsedMillicores" yaml:"cpuUsedMillicores"`
	CPUCapacityMilli int64   `json:"cpuCapacityMillicores" yaml:"cpuCapacityMillicores"`
	CPUPct           float64 `json:"cpuPercent" yaml:"cpuPercent"`

	MemUsedBytes     int64   `json:"memUsedBytes" yaml:"memUsedBytes"`
	MemCapacityBytes int64   `json:"memCapacityBytes" yaml:"memCapacityBytes"`
	MemPct           float64 `json:"memPercent" yaml:"memPercent"`

	// Basis is set when the capacity totals above are allocatable sums.
	// Empty means node capacity.
	Basis Basis `json:"basis,omitempty" yaml:"basis,omitempty"`
}

// Aggregate folds records into cluster totals using node capacity as the
// denominator. The result does not depend on the order of records, and an
// empty input yields the zero aggregate.
func Aggregate(records []Record) ClusterAggregate {
	return AggregateOn(records, BasisCapacity)
}

// AggregateOn is Aggregate with an explicit percentage basis.
func AggregateOn(records []Record, basis Basis) ClusterAggregate {
	var agg ClusterAggregate
	if basis == BasisAllocatable {
		agg.Basis = basis
	}
	for _, r := range records {
		agg.Nodes++
		if r.Ready {
			agg.ReadyNodes++
		}
		if r.Tainted() {
			agg.TaintedNodes++
		}
		if r.Autoscaled {
			agg.AutoscaledNodes++
		}
		if !r.MetricsAvailable {
			agg.NoMetricsNodes++
		}
		agg.Pods += r.PodCount
		agg.PodCapacity += r.PodCapacity
		agg.CPUUsedMilli += r.CPUUsedMilli
		agg.CPUCapacityMilli += r.CPUBasisMilli(basis)
		agg.MemUsedBytes += r.MemUsedBytes
		agg.MemCapacityBytes += r.MemBasisBytes(basis)
	}
	agg.CPUPct = percent(agg.CPUUsedMilli, agg.CPUCapacityMilli)
	agg.MemPct = percent(agg.MemUsedBytes, agg.MemCapacityBytes)
	agg.PodPct = percent(int64(agg.Pods), agg.PodCapacity)
	return agg
}
