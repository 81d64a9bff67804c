package models

// SortKeyName sorts the summary table by display name.
const SortKeyName = "name"

// SortDirection is the order of the summary table.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// SortConfig is the active summary table column and direction.
type SortConfig struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// DefaultSortConfig sorts by name, ascending.
func DefaultSortConfig() SortConfig {
	return SortConfig{Key: SortKeyName, Direction: SortAscending}
}

// IsValidSortKey reports whether key names a sortable column.
func IsValidSortKey(key string) bool {
	return key == SortKeyName || IsIntervalLabel(key)
}
