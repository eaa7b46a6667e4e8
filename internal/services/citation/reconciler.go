package citation

import (
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lexis/internal/models"
)

// Reconciler compares the citation events of a completed answer against the
// retrieved context and partitions the sources into cited and uncited.
type Reconciler struct {
	logger arbor.ILogger
}

func NewReconciler(logger arbor.ILogger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile runs once per completed answer. Source numbers outside
// [1, totalCount] are reported as invalid rather than dropped, so a model
// hallucinating [Source 99] is visible in the result.
func (r *Reconciler) Reconcile(events []models.CitationEvent, totalCount int) *models.ReconciliationResult {
	citedSet := make(map[int]bool)
	invalidSet := make(map[int]bool)

	for _, ev := range events {
		if ev.SourceNumber >= 1 && ev.SourceNumber <= totalCount {
			citedSet[ev.SourceNumber] = true
		} else {
			invalidSet[ev.SourceNumber] = true
		}
	}

	result := &models.ReconciliationResult{
		TotalCount: totalCount,
	}
	for n := 1; n <= totalCount; n++ {
		if citedSet[n] {
			result.Cited = append(result.Cited, n)
		} else {
			result.Uncited = append(result.Uncited, n)
		}
	}
	for n := range invalidSet {
		result.Invalid = append(result.Invalid, n)
	}
	sort.Ints(result.Invalid)
	result.CitedCount = len(result.Cited)

	if len(result.Invalid) > 0 {
		r.logger.Warn().
			Str("invalid_sources", fmt.Sprint(result.Invalid)).
			Int("total_sources", totalCount).
			Msg("Answer cites sources outside the retrieved context")
	}

	return result
}

// Summary renders the coverage line shown under an answer, e.g.
// "3/5 sources citées".
func Summary(result *models.ReconciliationResult) string {
	return fmt.Sprintf("%d/%d sources citées", result.CitedCount, result.TotalCount)
}
