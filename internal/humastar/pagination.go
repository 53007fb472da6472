package humastar

import "fmt"

// Pager is implemented by response bodies that carry pagination metadata.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageBody is a generic paginated response envelope.
type PageBody[T any] struct {
	Offset int `json:"offset" doc:"Current offset"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
	// More is set when the page was full, so a next page may exist.
	More bool `json:"more" doc:"Whether a following page may exist"`
}

// NewPage wraps items fetched with limit+1 so More can be derived.
func NewPage[T any](items []T, offset, limit int) PageBody[T] {
	p := PageBody[T]{Offset: offset, Limit: limit, Data: items}
	if len(items) > limit {
		p.Data, p.More = items[:limit], true
	}
	if p.Data == nil {
		p.Data = []T{}
	}
	return p
}

// PaginationLinks returns RFC 8288 Link header values for first/prev/next.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	links := []string{fmt.Sprintf(`<%s?offset=0&limit=%d>; rel="first"`, basePath, p.Limit)}
	if p.Offset > 0 {
		prev := max(p.Offset-p.Limit, 0)
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="prev"`, basePath, prev, p.Limit))
	}
	if p.More {
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="next"`, basePath, p.Offset+p.Limit, p.Limit))
	}
	return links
}
