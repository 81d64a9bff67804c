package models

import "github.com/shopspring/decimal"

// Candle is one OHLC sample of a stock's history.
type Candle struct {
	Time   string          `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume,omitempty"`
}

// DetailSeries is the price history of one symbol for one period.
// History is expected in ascending time order; upstream does not guarantee it.
type DetailSeries struct {
	Symbol  string   `json:"symbol"`
	Name    string   `json:"name"`
	History []Candle `json:"history"`
}

// Choice is a selectable option on the detail page.
type Choice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Periods are the history lookbacks offered on the detail page.
var Periods = []Choice{
	{Label: "1M", Value: "1mo"},
	{Label: "3M", Value: "3mo"},
	{Label: "6M", Value: "6mo"},
	{Label: "1Y", Value: "1y"},
	{Label: "2Y", Value: "2y"},
	{Label: "5Y", Value: "5y"},
}

// HistoryIntervals are the sampling granularities the details endpoint accepts.
var HistoryIntervals = []Choice{
	{Label: "Daily", Value: "1d"},
	{Label: "Weekly", Value: "1wk"},
	{Label: "Monthly", Value: "1mo"},
}

const (
	DefaultPeriod   = "1y"
	DefaultInterval = "1d"
)

// IsValidPeriod reports whether p is one of Periods.
func IsValidPeriod(p string) bool {
	return hasChoice(Periods, p)
}

// IsValidHistoryInterval reports whether i is one of HistoryIntervals.
func IsValidHistoryInterval(i string) bool {
	return hasChoice(HistoryIntervals, i)
}

func hasChoice(choices []Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}
