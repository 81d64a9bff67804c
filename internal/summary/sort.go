package summary

import (
	"slices"
	"strings"

	"github.com/bobmcallan/niftyscope/internal/models"
)

// SortRows stable-sorts rows in place by cfg. Interval keys compare the percent
// change with a missing value counted as zero. Equal rows keep their order in
// both directions.
func SortRows(rows []models.SummaryRow, cfg models.SortConfig) {
	cmp := compareBy(cfg.Key)
	if cfg.Direction == models.SortDescending {
		slices.SortStableFunc(rows, func(a, b models.SummaryRow) int { return cmp(b, a) })
		return
	}
	slices.SortStableFunc(rows, cmp)
}

func compareBy(key string) func(a, b models.SummaryRow) int {
	if key == models.SortKeyName {
		return func(a, b models.SummaryRow) int {
			return strings.Compare(a.Name, b.Name)
		}
	}
	return func(a, b models.SummaryRow) int {
		return a.Interval(key).PctOrZero().Cmp(b.Interval(key).PctOrZero())
	}
}
