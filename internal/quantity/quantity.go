// Package quantity converts Kubernetes quantity strings into integer base
// units (millicores for CPU, bytes for memory) and back into the short
// human-readable forms that kubectl prints.
package quantity

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/inf.v0"
	"k8s.io/apimachinery/pkg/api/resource"
)

// ParseError reports a quantity string that could not be converted.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("invalid quantity: %s", e.Reason)
	}
	return fmt.Sprintf("invalid quantity %q: %s", e.Input, e.Reason)
}

var (
	milli = inf.NewDec(1000, 0)
	one   = inf.NewDec(1, 0)
)

// CPUToMillicores converts "450m", "2", "0.5" or a metrics-server nanocore
// value such as "123456789n" into millicores, truncating toward zero.
func CPUToMillicores(s string) (int64, error) {
	return convert(s, milli)
}

// MemToBytes converts "1536Ki", "2Gi", "500M" or a bare byte count into bytes,
// truncating toward zero.
func MemToBytes(s string) (int64, error) {
	return convert(s, one)
}

func convert(raw string, factor *inf.Dec) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &ParseError{Input: raw, Reason: "empty"}
	}
	q, err := resource.ParseQuantity(normalizeSuffix(s))
	if err != nil {
		return 0, &ParseError{Input: raw, Reason: "unrecognized magnitude or suffix"}
	}
	if q.Sign() < 0 {
		return 0, &ParseError{Input: raw, Reason: "negative"}
	}
	d := new(inf.Dec).Mul(q.AsDec(), factor)
	d.Round(d, 0, inf.RoundDown)
	v, ok := d.Unscaled()
	if !ok {
		return 0, &ParseError{Input: raw, Reason: "out of range"}
	}
	return v, nil
}

// normalizeSuffix maps the decimal kilo suffix "K", which kubectl users type
// but the apimachinery grammar spells "k", onto the accepted form.
func normalizeSuffix(s string) string {
	if strings.HasSuffix(s, "K") {
		return strings.TrimSuffix(s, "K") + "k"
	}
	return s
}

// FormatMillicores renders millicores the way kubectl top does: "450m".
func FormatMillicores(m int64) string {
	return strconv.FormatInt(m, 10) + "m"
}

type binaryUnit struct {
	suffix string
	size   int64
}

var binaryUnits = []binaryUnit{
	{"Ti", 1 << 40},
	{"Gi", 1 << 30},
	{"Mi", 1 << 20},
	{"Ki", 1 << 10},
}

// FormatBytes renders a byte count with the largest binary suffix whose
// magnitude is at least one, keeping one decimal ("1.2Gi") and dropping a
// trailing ".0" ("2Gi"). Values below 1Ki stay in Ki ("0Ki", "0.5Ki").
func FormatBytes(b int64) string {
	if b < 0 {
		if b == math.MinInt64 {
			b++
		}
		return "-" + FormatBytes(-b)
	}
	for i, u := range binaryUnits {
		if b < u.size {
			continue
		}
		whole := b / u.size
		tenths := ((b%u.size)*10 + u.size/2) / u.size
		if tenths == 10 {
			whole++
			tenths = 0
		}
		if whole == 1024 && i > 0 {
			return formatUnit(1, 0, binaryUnits[i-1].suffix)
		}
		return formatUnit(whole, tenths, u.suffix)
	}
	tenths := (b*10 + 512) / 1024
	if tenths == 10 {
		return "1Ki"
	}
	return formatUnit(0, tenths, "Ki")
}

func formatUnit(whole, tenths int64, suffix string) string {
	if tenths == 0 {
		return strconv.FormatInt(whole, 10) + suffix
	}
	return fmt.Sprintf("%d.%d%s", whole, tenths, suffix)
}
