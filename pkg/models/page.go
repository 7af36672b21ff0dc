package models

// Page is one page of a paged listing. PageNo starts at 1.
type Page[T any] struct {
	TotalList   []T `json:"total_list"`
	Total       int `json:"total"`
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalPage   int `json:"total_page"`
}

// PageRequest is the cursor passed to paged store queries.
type PageRequest struct {
	PageNo   int
	PageSize int
}

// Offset returns the row offset for the request.
func (p PageRequest) Offset() int {
	if p.PageNo <= 1 {
		return 0
	}
	return (p.PageNo - 1) * p.PageSize
}

// NewPage builds a page and derives TotalPage from total and page size.
func NewPage[T any](items []T, total int, req PageRequest) *Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPage := 0
	if req.PageSize > 0 {
		totalPage = (total + req.PageSize - 1) / req.PageSize
	}
	return &Page[T]{
		TotalList:   items,
		Total:       total,
		CurrentPage: req.PageNo,
		PageSize:    req.PageSize,
		TotalPage:   totalPage,
	}
}
