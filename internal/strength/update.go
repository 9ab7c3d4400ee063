package strength

import (
	"time"

	"github.com/example/reviewcore/pkg/models"
)

// ComputeUpdate implements C3: it applies the C2 formulas and returns a new
// item value with N, n, S, and next_review_time advanced. history is the
// item's prior history, not including record. Other fields of item are
// unchanged.
func ComputeUpdate(item models.Item, record models.ReviewRecord, history []models.ReviewRecord) models.Item {
	nPrime := UpdateVirtualCount(item.VirtualReviewCount, record.Action)
	nActualPrime := item.ActualReviewCount + 1
	sPrime := Sensitivity(nPrime, nActualPrime)

	base := BaseInterval(sPrime, nPrime)
	avg := AverageDwell(history)
	alpha := DwellFactor(record.DwellMillis, avg)
	t := FinalInterval(base, alpha)

	updated := item
	updated.VirtualReviewCount = nPrime
	updated.ActualReviewCount = nActualPrime
	updated.Sensitivity = sPrime
	updated.NextReviewTime = record.ReviewTime.Add(time.Duration(t) * time.Millisecond)
	return updated
}
