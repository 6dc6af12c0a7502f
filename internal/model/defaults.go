package model

// Shared defaults used by the store and the query surfaces.
const (
	// DefaultQueryLimit bounds query/search results when the filter leaves
	// Limit unset.
	DefaultQueryLimit = 100

	// CategoryTopN caps the per-category breakdown in LogStats.
	CategoryTopN = 20
)
