package core

// PageRequest selects a zero-based page. Size 0 means everything in one page.
type PageRequest struct {
	Page int
	Size int
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items      []T `json:"content"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalItems int `json:"totalElements"`
	TotalPages int `json:"totalPages"`
}

// Paginate cuts items according to req. Pages past the end come back empty.
func Paginate[T any](items []T, req PageRequest) Page[T] {
	total := len(items)
	if req.Size <= 0 {
		pages := 0
		if total > 0 {
			pages = 1
		}
		return Page[T]{Items: nonNil(items), Page: 0, Size: total, TotalItems: total, TotalPages: pages}
	}

	page := max(req.Page, 0)
	pages := (total + req.Size - 1) / req.Size
	start := min(page*req.Size, total)
	end := min(start+req.Size, total)
	return Page[T]{
		Items:      nonNil(items[start:end]),
		Page:       page,
		Size:       req.Size,
		TotalItems: total,
		TotalPages: pages,
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
