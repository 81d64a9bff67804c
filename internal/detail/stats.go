package detail

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/niftyscope/internal/models"
)

// Stats are the figures shown above the detail chart.
type Stats struct {
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Current   decimal.Decimal `json:"current"`
	Change    decimal.Decimal `json:"change"`
	ChangePct decimal.Decimal `json:"change_pct"`
}

var hundred = decimal.NewFromInt(100)

// ComputeStats derives period high, low, latest close and change over the series.
// It returns false for an empty history.
func ComputeStats(history []models.Candle) (Stats, bool) {
	if len(history) == 0 {
		return Stats{}, false
	}

	first := history[0]
	last := history[len(history)-1]
	stats := Stats{
		High:    first.High,
		Low:     first.Low,
		Current: last.Close,
		Change:  last.Close.Sub(first.Close),
	}
	for _, c := range history[1:] {
		if c.High.GreaterThan(stats.High) {
			stats.High = c.High
		}
		if c.Low.LessThan(stats.Low) {
			stats.Low = c.Low
		}
	}
	if !first.Close.IsZero() {
		stats.ChangePct = stats.Change.Div(first.Close).Mul(hundred).Round(2)
	}
	return stats, true
}
