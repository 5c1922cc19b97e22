package render

import "fmt"

// Band is a symbolic utilisation tier.
type Band int

const (
	BandLow Band = iota
	BandMid
	BandHigh
	BandCritical
)

func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMid:
		return "mid"
	case BandHigh:
		return "high"
	case BandCritical:
		return "critical"
	default:
		return fmt.Sprintf("Band(%d)", int(b))
	}
}

// Tone returns the tone used to paint values in this band.
func (b Band) Tone() Tone {
	switch b {
	case BandMid:
		return ToneMid
	case BandHigh:
		return ToneHigh
	case BandCritical:
		return ToneCritical
	default:
		return ToneLow
	}
}

// Thresholds are the lower bounds, in percent, of the mid, high and critical
// bands. Anything below Mid is low.
type Thresholds struct {
	Mid      float64 `json:"mid" yaml:"mid" mapstructure:"mid"`
	High     float64 `json:"high" yaml:"high" mapstructure:"high"`
	Critical float64 `json:"critical" yaml:"critical" mapstructure:"critical"`
}

// DefaultThresholds returns the 50/75/90 table.
func DefaultThresholds() Thresholds {
	return Thresholds{Mid: 50, High: 75, Critical: 90}
}

// Validate requires 0 < Mid < High < Critical <= 100.
func (t Thresholds) Validate() error {
	if !(t.Mid > 0 && t.Mid < t.High && t.High < t.Critical && t.Critical <= 100) {
		return fmt.Errorf("thresholds must satisfy 0 < mid < high < critical <= 100 (got %g/%g/%g)", t.Mid, t.High, t.Critical)
	}
	return nil
}

func (t Thresholds) orDefault() Thresholds {
	if t == (Thresholds{}) {
		return DefaultThresholds()
	}
	return t
}

// BandFor maps a percentage onto a band. The zero Thresholds value behaves
// like DefaultThresholds.
func (t Thresholds) BandFor(pct float64) Band {
	t = t.orDefault()
	table := []struct {
		min  float64
		band Band
	}{
		{t.Critical, BandCritical},
		{t.High, BandHigh},
		{t.Mid, BandMid},
	}
	for _, row := range table {
		if pct >= row.min {
			return row.band
		}
	}
	return BandLow
}

// BandFor maps a percentage onto a band using DefaultThresholds.
func BandFor(pct float64) Band {
	return DefaultThresholds().BandFor(pct)
}
