package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// IntervalChange is the percent change and traded range over one lookback window.
// Pct is invalid when upstream had no data for the window.
type IntervalChange struct {
	Pct   decimal.NullDecimal `json:"pct"`
	Range string              `json:"range"`
}

// PctOrZero returns the percent change, treating a missing value as zero.
func (c IntervalChange) PctOrZero() decimal.Decimal {
	if !c.Pct.Valid {
		return decimal.Zero
	}
	return c.Pct.Decimal
}

// SummaryRow is one stock on the dashboard: current price plus per-interval changes.
//
// On the wire the intervals are flattened into the row object:
//
//	{"symbol":"TCS.NS","name":"TCS","current_price":3890.5,"1d":{"pct":0.4,"range":"..."}}
type SummaryRow struct {
	Symbol       string
	Name         string
	CurrentPrice decimal.Decimal
	Intervals    map[string]IntervalChange
}

// Interval returns the change for label; a missing label yields an empty change.
func (r SummaryRow) Interval(label string) IntervalChange {
	return r.Intervals[label]
}

// UnmarshalJSON decodes the flat upstream row. Every object-valued field other than
// the fixed ones is taken as an interval.
func (r *SummaryRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	row := SummaryRow{Intervals: make(map[string]IntervalChange)}
	for key, value := range raw {
		switch key {
		case "symbol":
			if err := json.Unmarshal(value, &row.Symbol); err != nil {
				return fmt.Errorf("invalid symbol: %w", err)
			}
		case "name":
			if err := json.Unmarshal(value, &row.Name); err != nil {
				return fmt.Errorf("invalid name: %w", err)
			}
		case "current_price":
			if err := json.Unmarshal(value, &row.CurrentPrice); err != nil {
				return fmt.Errorf("invalid current_price: %w", err)
			}
		default:
			trimmed := bytes.TrimSpace(value)
			if len(trimmed) == 0 || trimmed[0] != '{' {
				continue
			}
			var change IntervalChange
			if err := json.Unmarshal(trimmed, &change); err != nil {
				return fmt.Errorf("invalid interval %s: %w", key, err)
			}
			row.Intervals[key] = change
		}
	}

	*r = row
	return nil
}

// MarshalJSON encodes the row in the same flat shape it was received in.
func (r SummaryRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Intervals)+3)
	for label, change := range r.Intervals {
		out[label] = change
	}
	out["symbol"] = r.Symbol
	out["name"] = r.Name
	out["current_price"] = r.CurrentPrice
	return json.Marshal(out)
}
