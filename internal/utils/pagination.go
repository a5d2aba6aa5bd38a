// Package utils holds small helpers shared by the HTTP and service layers
// that carry no resource-specific logic.
package utils

import (
	"math"
	"strconv"
)

// Page bounds used by list endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page window over an ordered list.
type Page struct {
	Number int
	Size   int
}

// ParsePage builds a Page from raw query values. Missing or unparsable
// values fall back to the defaults; the result is then clamped with Clamp.
func ParsePage(number, size string) Page {
	return Page{
		Number: AtoiDefault(number, DefaultPage),
		Size:   AtoiDefault(size, DefaultPageSize),
	}.Clamp()
}

// Clamp returns p with Number >= 1 and Size within [1, MaxPageSize].
func (p Page) Clamp() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	switch {
	case p.Size < 1:
		p.Size = 1
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the number of rows skipped before this page. It saturates at
// math.MaxInt instead of wrapping for very large page numbers.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// TotalPages is the number of pages needed to hold total rows.
func (p Page) TotalPages(total int64) int {
	if total <= 0 || p.Size <= 0 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// HasNext reports whether a page follows p when the list holds total rows.
func (p Page) HasNext(total int64) bool { return p.Number < p.TotalPages(total) }

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a valid integer. Surrounding spaces are not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
