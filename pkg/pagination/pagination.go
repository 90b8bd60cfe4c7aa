package pagination

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds page-number pagination parameters.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PageSize: DefaultPageSize}
}

// Normalize clamps p into the accepted range: page at least 1, page size
// between 1 and MaxPageSize, zero page size meaning the default. Page is
// capped so that Page*PageSize cannot overflow int.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize <= 0:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	if maxPage := math.MaxInt / p.PageSize; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

// Offset is the zero-based index of the first item on the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Window returns the [start, end) slice bounds of the page within total
// items. A page past the end yields an empty window.
func (p Params) Window(total int) (start, end int) {
	start = p.Offset()
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end = start + p.PageSize
	if end > total || end < start {
		end = total
	}
	return start, end
}

// FromQuery reads "page" and "page_size" from q. Unparseable or
// non-positive values fall back to the defaults and oversized pages are
// clamped to MaxPageSize.
func FromQuery(q url.Values) Params {
	p := DefaultParams()

	if page := q.Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if size := q.Get("page_size"); size != "" {
		if v, err := strconv.Atoi(size); err == nil && v > 0 {
			p.PageSize = v
		}
	}

	return p.Normalize()
}

// FromRequest extracts pagination parameters from an HTTP request.
func FromRequest(r *http.Request) Params {
	return FromQuery(r.URL.Query())
}

// Links builds absolute next and previous page URLs for r, keeping every
// other query parameter. Either is nil when there is no such page. The
// previous link of page 2 drops the page parameter entirely.
func Links(r *http.Request, total int, p Params) (next, previous *string) {
	if p.Page < math.MaxInt/max(p.PageSize, 1) && p.Page*p.PageSize < total {
		u := pageURL(r, p.Page+1)
		next = &u
	}
	if p.Page > 1 {
		u := pageURL(r, p.Page-1)
		previous = &u
	}
	return next, previous
}

func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd == "http" || fwd == "https" {
		scheme = fwd
	}

	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}
