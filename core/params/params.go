package params

import "strconv"

// QueryParams carries common list parameters parsed from the query string.
type QueryParams struct {
	PageNumber int
	PageSize   int
}

// Parse reads page/page_size strings, falling back to defaults on anything
// unparseable.
func Parse(page, size string) QueryParams {
	p := QueryParams{}
	if n, err := strconv.Atoi(page); err == nil {
		p.PageNumber = n
	}
	if n, err := strconv.Atoi(size); err == nil {
		p.PageSize = n
	}
	return p.Normalized()
}

func (p QueryParams) Normalized() QueryParams {
	if p.PageNumber < 1 {
		p.PageNumber = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
	return p
}

// Offset is the SQL offset for the page.
func (p QueryParams) Offset() int {
	return (p.PageNumber - 1) * p.PageSize
}
