package listview

// TotalPages returns ceil(n/pageSize). An empty collection has zero pages.
func TotalPages(n, pageSize int) int {
	if n <= 0 {
		return 0
	}
	if pageSize < 1 {
		pageSize = 1
	}
	return (n + pageSize - 1) / pageSize
}

// lastValidPage is the highest page that navigation may land on.
// Page 1 is always valid so an empty view still has a current page.
func lastValidPage(totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	return totalPages
}

// ClampPage forces page into [1, max(totalPages,1)].
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if last := lastValidPage(totalPages); page > last {
		return last
	}
	return page
}

// PageBounds returns the half-open [start, end) range of items shown on page.
func PageBounds(page, pageSize, n int) (start, end int) {
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}
	start = (page - 1) * pageSize
	if start > n {
		start = n
	}
	end = start + pageSize
	if end > n {
		end = n
	}
	return start, end
}

// PageSlice returns the items on page. The result shares the backing array
// with items; callers that hand it out must copy.
func PageSlice[T any](items []T, page, pageSize int) []T {
	start, end := PageBounds(page, pageSize, len(items))
	return items[start:end]
}

// ButtonKind distinguishes numbered page buttons from gap markers.
type ButtonKind int

const (
	ButtonPage ButtonKind = iota
	ButtonEllipsis
)

// PageButton is one entry in a pagination bar.
type PageButton struct {
	Kind    ButtonKind
	Page    int  // zero for ellipses
	Current bool // true for the button of the current page
}

// PageButtons lays out a pagination bar for (page, totalPages): the first and
// last pages are pinned, the current page is shown with one neighbour on each
// side, and every gap between shown numbers collapses into an ellipsis.
func PageButtons(page, totalPages int) []PageButton {
	if totalPages <= 0 {
		return nil
	}
	page = ClampPage(page, totalPages)

	shown := make([]int, 0, 5)
	add := func(p int) {
		if p < 1 || p > totalPages {
			return
		}
		for _, s := range shown {
			if s == p {
				return
			}
		}
		shown = append(shown, p)
	}
	add(1)
	add(page - 1)
	add(page)
	add(page + 1)
	add(totalPages)

	// page is clamped, so shown is already ascending.
	buttons := make([]PageButton, 0, len(shown)*2)
	prev := 0
	for _, p := range shown {
		if prev != 0 && p-prev > 1 {
			buttons = append(buttons, PageButton{Kind: ButtonEllipsis})
		}
		buttons = append(buttons, PageButton{Kind: ButtonPage, Page: p, Current: p == page})
		prev = p
	}
	return buttons
}
