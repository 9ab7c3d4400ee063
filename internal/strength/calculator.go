// Package strength implements the pure review-strength formulas (C2) and
// composes them into the next-review calculation (C3). Every function here
// is pure: S is clamped to [1, 3] and the final interval is floored at 5
// seconds. A zero dwell against a positive average makes DwellFactor 0 and
// FinalInterval +Inf; the session never scores a dwell below 200ms.
package strength

import (
	"math"

	"github.com/example/reviewcore/pkg/models"
)

// BaseIntervalMillis and MinIntervalMillis are the §6 configuration
// constants for the interval formula (10s base, 5s floor).
const (
	BaseIntervalMillis = 10_000.0
	MinIntervalMillis  = 5_000.0
)

// Anomaly is the result of anomaly detection over recent history.
type Anomaly int

const (
	AnomalyNone Anomaly = iota
	AnomalyFrequentAccidents
	AnomalyHighVariance
)

func (a Anomaly) String() string {
	switch a {
	case AnomalyFrequentAccidents:
		return "FrequentAccidents"
	case AnomalyHighVariance:
		return "HighVariance"
	default:
		return "None"
	}
}

// UpdateVirtualCount computes N' = f(N, action), floored at 0.
func UpdateVirtualCount(n float64, action models.Action) float64 {
	switch action {
	case models.ActionSwipeNext:
		n = n + 1
	case models.ActionShowMeaning:
		n = n + 0.5
	case models.ActionMarkDifficult:
		if n > 2 {
			n = n - 2
		} else {
			n = 0
		}
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Sensitivity computes S' = clamp(tanh(N'/n' - 1) + 2, 1, 3). n' = 0 is
// only reachable for the pre-first-review placeholder, in which case the
// value is defined to be 1.0.
func Sensitivity(nPrime float64, nActualPrime int) float64 {
	if nActualPrime == 0 {
		return 1.0
	}
	ratio := nPrime/float64(nActualPrime) - 1
	return clamp(math.Tanh(ratio)+2, 1, 3)
}

// BaseInterval computes t_base_ms = 10_000 * (S')^(N').
func BaseInterval(sPrime, nPrime float64) float64 {
	return BaseIntervalMillis * math.Pow(sPrime, nPrime)
}

// AverageDwell is the mean dwell, in milliseconds, over the last
// min(3, |history|) records. An empty history yields 0, which pushes the
// dwell factor to the else-branch value of 1.0 (§4.2, Design Note on
// AverageDwell semantics).
func AverageDwell(history []models.ReviewRecord) float64 {
	n := len(history)
	if n > 3 {
		n = 3
	}
	if n == 0 {
		return 0
	}
	recent := history[len(history)-n:]
	sum := 0.0
	for _, r := range recent {
		sum += float64(r.DwellMillis)
	}
	return sum / float64(n)
}

// DwellFactor computes alpha = dwell/avg when avg > 0, else 1.0.
func DwellFactor(dwellMillis int64, avgMillis float64) float64 {
	if avgMillis > 0 {
		return float64(dwellMillis) / avgMillis
	}
	return 1.0
}

// FinalInterval computes t_ms = max(t_base/alpha, 5_000).
func FinalInterval(baseMillis, alpha float64) float64 {
	v := baseMillis / alpha
	if v < MinIntervalMillis {
		v = MinIntervalMillis
	}
	return v
}

// DetectAnomaly looks at the last 5 records: FrequentAccidents if >= 3 are
// accidental, HighVariance if stddev(dwell) > 0.5*mean(dwell), else None.
func DetectAnomaly(history []models.ReviewRecord) Anomaly {
	n := len(history)
	if n > 5 {
		n = 5
	}
	if n == 0 {
		return AnomalyNone
	}
	recent := history[len(history)-n:]

	accidental := 0
	mean := 0.0
	for _, r := range recent {
		if r.IsAccidental() {
			accidental++
		}
		mean += float64(r.DwellMillis)
	}
	mean /= float64(n)
	if accidental >= 3 {
		return AnomalyFrequentAccidents
	}

	variance := 0.0
	for _, r := range recent {
		d := float64(r.DwellMillis) - mean
		variance += d * d
	}
	variance /= float64(n)
	stddev := math.Sqrt(variance)
	if mean > 0 && stddev > 0.5*mean {
		return AnomalyHighVariance
	}
	return AnomalyNone
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
