package utils

import (
	"regexp"
	"strconv"
)

var paginationPattern = regexp.MustCompile(`function do_pagination_start\(\)[^\}]*start = \(start > \d+\) \? (\d+) : start;[^\}]*start = \(start - 1\) \* (\d+);[^\}]*\}`)

// Pages returns the offset of every page of a paginated listing, reading the
// page count and page size from the inline pagination script. A listing
// without the script has a single page at offset 0.
func Pages(body []byte) []int {
	pages, perpage := 1, 0
	if m := paginationPattern.FindSubmatch(body); m != nil {
		p, err1 := strconv.Atoi(string(m[1]))
		pp, err2 := strconv.Atoi(string(m[2]))
		if err1 == nil && err2 == nil && p > 0 {
			pages, perpage = p, pp
		}
	}
	offsets := make([]int, pages)
	for i := range offsets {
		offsets[i] = i * perpage
	}
	return offsets
}
