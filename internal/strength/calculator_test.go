package strength

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/reviewcore/pkg/models"
)

func TestUpdateVirtualCount(t *testing.T) {
	assert.Equal(t, 1.0, UpdateVirtualCount(0, models.ActionSwipeNext))
	assert.Equal(t, 0.5, UpdateVirtualCount(0, models.ActionShowMeaning))

	// N=2, MarkDifficult -> N=0; N=2.5, MarkDifficult -> N=0.5 (§8 boundary).
	assert.Equal(t, 0.0, UpdateVirtualCount(2, models.ActionMarkDifficult))
	assert.Equal(t, 0.5, UpdateVirtualCount(2.5, models.ActionMarkDifficult))

	// Never goes negative.
	assert.Equal(t, 0.0, UpdateVirtualCount(1, models.ActionMarkDifficult))
}

func TestSensitivity(t *testing.T) {
	// First study of a new item: N'=1, n'=1 -> S=clamp(tanh(0)+2)=2.
	assert.InDelta(t, 2.0, Sensitivity(1, 1), 1e-9)

	// n'=0 is the pre-first-review placeholder; defined as 1.0.
	assert.Equal(t, 1.0, Sensitivity(0, 0))

	// Stays within [1, 3] for extreme ratios. N'/n' is never negative, so
	// the low end is 2 - tanh(1) ~ 1.238 rather than the clamp floor.
	assert.InDelta(t, 3.0, Sensitivity(1000, 1), 1e-6)
	assert.InDelta(t, 1.2388, Sensitivity(1, 1000), 1e-3)
}

func TestBaseInterval(t *testing.T) {
	assert.InDelta(t, 20_000.0, BaseInterval(2, 1), 1e-9)
	assert.InDelta(t, 12_401.6, BaseInterval(1.538, 0.5), 1.0)
}

func TestAverageDwell(t *testing.T) {
	assert.Equal(t, 0.0, AverageDwell(nil))

	history := []models.ReviewRecord{
		{DwellMillis: 1000}, {DwellMillis: 2000}, {DwellMillis: 3000}, {DwellMillis: 4000},
	}
	// Only the most recent 3 count.
	assert.InDelta(t, 3000.0, AverageDwell(history), 1e-9)
}

func TestDwellFactor(t *testing.T) {
	assert.Equal(t, 1.0, DwellFactor(500, 0))
	assert.InDelta(t, 2.0, DwellFactor(1000, 500), 1e-9)
}

func TestFinalInterval_FloorsAtMinimum(t *testing.T) {
	assert.Equal(t, MinIntervalMillis, FinalInterval(1000, 10))
	assert.InDelta(t, 20_000.0, FinalInterval(20_000, 1), 1e-9)
}

func TestDetectAnomaly_FrequentAccidents(t *testing.T) {
	history := make([]models.ReviewRecord, 0, 5)
	for i := 0; i < 3; i++ {
		history = append(history, models.ReviewRecord{DwellMillis: 50})
	}
	for i := 0; i < 2; i++ {
		history = append(history, models.ReviewRecord{DwellMillis: 5000})
	}
	assert.Equal(t, AnomalyFrequentAccidents, DetectAnomaly(history))
}

func TestDetectAnomaly_HighVariance(t *testing.T) {
	history := []models.ReviewRecord{
		{DwellMillis: 10000}, {DwellMillis: 200}, {DwellMillis: 9000}, {DwellMillis: 300}, {DwellMillis: 8000},
	}
	assert.Equal(t, AnomalyHighVariance, DetectAnomaly(history))
}

func TestDetectAnomaly_None(t *testing.T) {
	assert.Equal(t, AnomalyNone, DetectAnomaly(nil))
	history := []models.ReviewRecord{
		{DwellMillis: 1000}, {DwellMillis: 1050}, {DwellMillis: 980},
	}
	assert.Equal(t, AnomalyNone, DetectAnomaly(history))
}

func TestAnomaly_String(t *testing.T) {
	assert.Equal(t, "None", AnomalyNone.String())
	assert.Equal(t, "FrequentAccidents", AnomalyFrequentAccidents.String())
	assert.Equal(t, "HighVariance", AnomalyHighVariance.String())
}

func TestSensitivity_NeverExceedsBounds(t *testing.T) {
	for _, ratio := range []float64{-100, -1, 0, 1, 100, math.Inf(1)} {
		s := clamp(math.Tanh(ratio)+2, 1, 3)
		assert.GreaterOrEqual(t, s, 1.0)
		assert.LessOrEqual(t, s, 3.0)
	}
}
