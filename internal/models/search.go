package models

// SearchResult is one match returned by the market search endpoint.
type SearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
}
