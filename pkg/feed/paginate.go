package feed

import "fusion-portal-backend/pkg/models"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page 分页参数，从 1 开始
type Page struct {
	Number int
	Size   int
}

func (p Page) normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Paginate returns the requested window of items; past the end it is empty
func Paginate(items []models.Content, page Page) []models.Content {
	p := page.normalized()
	start := (p.Number - 1) * p.Size
	if start >= len(items) {
		return []models.Content{}
	}
	end := start + p.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
