// Package utils holds small generic helpers with no domain knowledge.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or not a
// number.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage normalizes a (page, pageSize) pair: pages start at 1 and the
// size is bounded by maxSize (falling back to def when out of range).
func ClampPage(page, pageSize, def, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxSize {
		pageSize = def
	}
	return page, pageSize
}
