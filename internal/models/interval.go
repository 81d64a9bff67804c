// Package models defines the data structures exchanged with the market API
// and rendered by the portal.
package models

// IntervalLabels lists every lookback window the summary endpoint reports,
// shortest first.
var IntervalLabels = []string{
	"1d", "2d", "3d", "4d", "5d",
	"1w", "2w", "3w", "4w",
	"1m", "2m", "3m", "4m", "5m", "6m",
	"1y", "2y",
}

// DefaultDashboardColumns are the interval columns shown on the dashboard.
var DefaultDashboardColumns = []string{"1d", "5d", "1w", "1m", "6m", "1y"}

// IsIntervalLabel reports whether label is a known summary interval.
func IsIntervalLabel(label string) bool {
	for _, l := range IntervalLabels {
		if l == label {
			return true
		}
	}
	return false
}
