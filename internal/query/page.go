package query

// DefaultPageSize applies when a caller passes no usable page size.
const DefaultPageSize = 20

// Window is the pagination position of one page.
type Window struct {
	Page       int
	PageSize   int
	Offset     int
	Total      int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// Paginate computes the window for page (1-indexed) over total matching rows.
// Pages below one clamp to one and non-positive sizes use DefaultPageSize.
// Pages past the end are valid and simply select no rows.
func Paginate(total, page, pageSize int) Window {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Window{
		Page:       page,
		PageSize:   pageSize,
		Offset:     (page - 1) * pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}
