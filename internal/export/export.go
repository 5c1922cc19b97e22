// Package export encodes inspection results for machines: JSON, YAML and
// Prometheus text exposition.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inspect"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inventory"
)

type Format string

const (
	FormatText       Format = "text"
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatPrometheus Format = "prometheus"
)

var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatPrometheus}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML, FormatPrometheus:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "prom":
		return FormatPrometheus, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: text, json, yaml, prometheus)", s)
	}
}

// Document is the serialized shape of a result.
type Document struct {
	Cluster    string                     `json:"cluster" yaml:"cluster"`
	TakenAt    time.Time                  `json:"takenAt" yaml:"takenAt"`
	Summary    inventory.ClusterAggregate `json:"summary" yaml:"summary"`
	Nodes      []inventory.Record         `json:"nodes" yaml:"nodes"`
	Skipped    []Skipped                  `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	MetricsErr string                     `json:"metricsError,omitempty" yaml:"metricsError,omitempty"`
}

type Skipped struct {
	Node   string `json:"node" yaml:"node"`
	Reason string `json:"reason" yaml:"reason"`
}

func NewDocument(cluster string, res inspect.Result) Document {
	doc := Document{
		Cluster:    cluster,
		TakenAt:    res.TakenAt,
		Summary:    res.Aggregate,
		Nodes:      res.Nodes,
		MetricsErr: res.MetricsErr,
	}
	if doc.Nodes == nil {
		doc.Nodes = []inventory.Record{}
	}
	for _, f := range res.Skipped {
		doc.Skipped = append(doc.Skipped, Skipped{Node: f.Node, Reason: f.Reason()})
	}
	return doc
}

// Write encodes res in format f. FormatText is rendered by the caller and
// is rejected here.
func Write(w io.Writer, f Format, cluster string, res inspect.Result) error {
	switch f {
	case FormatJSON:
		b, err := json.MarshalIndent(NewDocument(cluster, res), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(cluster, res)); err != nil {
			return err
		}
		return enc.Close()
	case FormatPrometheus:
		return WritePrometheus(w, cluster, res)
	default:
		return fmt.Errorf("export: format %q is not a machine format", f)
	}
}
