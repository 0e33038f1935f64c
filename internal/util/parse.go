package util

import "strconv"

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParsePagination reads page and per_page values with bounds applied
func ParsePagination(pageStr, perPageStr string) (page, perPage int) {
	page = ParseInt(pageStr, 1)
	if page < 1 {
		page = 1
	}
	perPage = ParseInt(perPageStr, 20)
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
