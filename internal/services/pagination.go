package services

// Pagination describes one page of a larger result. From and To are the
// inclusive, 1-based positions shown to the reader; both are 0 when there
// are no items.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
	From       int `json:"from"`
	To         int `json:"to"`
}

// Paginate clamps page to [1, TotalPages] and pageSize to [1, maxPageSize]
// and derives the display range. A maxPageSize of 0 disables the upper clamp.
func Paginate(page, pageSize, totalItems, maxPageSize int) Pagination {
	if pageSize < 1 {
		pageSize = 1
	}
	if maxPageSize > 0 && pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	if totalItems < 0 {
		totalItems = 0
	}

	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	if totalPages == 0 {
		page = 1
	}

	p := Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
	if totalItems > 0 {
		p.From = (page-1)*pageSize + 1
		p.To = min(page*pageSize, totalItems)
	}
	return p
}

// Offset is the zero-based index of the first item on the page.
func (p Pagination) Offset() int {
	if p.From == 0 {
		return 0
	}
	return p.From - 1
}

// Slice returns the bounds of the page within a fully materialised list.
func (p Pagination) Slice() (start, end int) {
	return p.Offset(), p.To
}

// pageSize resolves a requested size against the configured default.
func pageSize(requested, fallback int) int {
	if requested < 1 {
		return fallback
	}
	return requested
}
