package repository

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Pagination selects a zero-based page of Size rows. Size 0 means unlimited,
// in which case Page is ignored.
type Pagination struct {
	Page int
	Size int
}

// ParsePagination parses the raw page and size query parameters. An absent
// page is 0, an absent size is unlimited.
func ParsePagination(page, size string) (Pagination, error) {
	var p Pagination

	if raw := strings.TrimSpace(page); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Pagination{}, &InvalidPaginationError{Param: "page", Value: page, Reason: "must be an integer"}
		}
		if n < 0 {
			return Pagination{}, &InvalidPaginationError{Param: "page", Value: page, Reason: "must not be negative"}
		}
		p.Page = n
	}

	if raw := strings.TrimSpace(size); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Pagination{}, &InvalidPaginationError{Param: "size", Value: size, Reason: "must be an integer"}
		}
		if n < 1 {
			return Pagination{}, &InvalidPaginationError{Param: "size", Value: size, Reason: "must be at least 1"}
		}
		p.Size = n
	}

	if p.Unlimited() {
		p.Page = 0
	}
	if p.overflows() {
		return Pagination{}, &InvalidPaginationError{Param: "page", Value: page, Reason: "page offset is out of range"}
	}
	return p, nil
}

// overflows reports whether Page*Size does not fit in an int.
func (p Pagination) overflows() bool {
	return !p.Unlimited() && p.Page > math.MaxInt/p.Size
}

// Validate rejects windows that ParsePagination would not produce.
func (p Pagination) Validate() error {
	if p.Page < 0 {
		return &InvalidPaginationError{Param: "page", Value: strconv.Itoa(p.Page), Reason: "must not be negative"}
	}
	if p.Size < 0 {
		return &InvalidPaginationError{Param: "size", Value: strconv.Itoa(p.Size), Reason: "must be at least 1"}
	}
	if p.overflows() {
		return &InvalidPaginationError{Param: "page", Value: strconv.Itoa(p.Page), Reason: "page offset is out of range"}
	}
	return nil
}

// Unlimited reports whether every row is requested.
func (p Pagination) Unlimited() bool {
	return p.Size <= 0
}

// Offset calculates the offset for database queries
func (p Pagination) Offset() int {
	if p.Unlimited() || p.Page <= 0 {
		return 0
	}
	return p.Page * p.Size
}

// Limit returns the page size for database queries, 0 when unlimited.
func (p Pagination) Limit() int {
	if p.Unlimited() {
		return 0
	}
	return p.Size
}

// PageInfo describes where a page sits in the full result set. Size 0 means
// the listing was unlimited.
type PageInfo struct {
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

// NewPageInfo computes page metadata from the total row count.
func NewPageInfo(total int64, p Pagination) PageInfo {
	info := PageInfo{Page: p.Page, Size: p.Size, TotalElements: total}
	switch {
	case total <= 0:
		info.TotalPages = 0
	case p.Unlimited():
		info.Page = 0
		info.TotalPages = 1
	default:
		size := int64(p.Size)
		pages := total / size
		if total%size != 0 {
			pages++
		}
		info.TotalPages = int(pages)
	}
	return info
}

// HasNext reports whether a page follows this one.
func (i PageInfo) HasNext() bool {
	return i.Page+1 < i.TotalPages
}

// HasPrev reports whether a non-empty page precedes this one.
func (i PageInfo) HasPrev() bool {
	return i.Page > 0 && i.TotalPages > 0
}

// Links holds navigation URLs for a page. Empty values are omitted.
type Links struct {
	First string `json:"first,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Self  string `json:"self,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last,omitempty"`
}

// Links builds navigation URLs from base, keeping its other query parameters.
func (i PageInfo) Links(base *url.URL) Links {
	if base == nil {
		return Links{}
	}
	links := Links{Self: base.String()}
	if i.Size <= 0 {
		return links
	}

	last := i.TotalPages - 1
	if last < 0 {
		last = 0
	}
	links.Self = pageURL(base, i.Page, i.Size)
	links.First = pageURL(base, 0, i.Size)
	links.Last = pageURL(base, last, i.Size)
	if i.HasPrev() {
		prev := i.Page - 1
		if prev > last {
			prev = last
		}
		links.Prev = pageURL(base, prev, i.Size)
	}
	if i.HasNext() {
		links.Next = pageURL(base, i.Page+1, i.Size)
	}
	return links
}

func pageURL(base *url.URL, page, size int) string {
	u := *base
	query := u.Query()
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	u.RawQuery = query.Encode()
	return u.String()
}

// Page is one page of a listing together with its metadata.
type Page[T any] struct {
	Items []T
	Info  PageInfo
}
