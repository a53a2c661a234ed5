// Package shared holds helpers common to the masterdata subpackages.
package shared

// ListFilters narrows masterdata list queries.
type ListFilters struct {
	Search  string
	SortBy  string
	SortDir string
	Page    int
	Limit   int
}

// Offset derives the query offset from page and limit.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}
