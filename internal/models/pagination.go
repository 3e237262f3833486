package models

type PaginationParams struct {
	Page  int
	Limit int
}

// Offset converts the one-based page number into a row offset.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type PaginatedList[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// NewPaginatedList wraps items in the pagination envelope. A nil slice becomes
// an empty one so the JSON stays an array.
func NewPaginatedList[T any](items []T, totalCount int, p PaginationParams) PaginatedList[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (totalCount + p.Limit - 1) / p.Limit
	}
	return PaginatedList[T]{
		Items:      items,
		TotalCount: totalCount,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: totalPages,
	}
}
