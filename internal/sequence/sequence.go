// Package sequence turns an ordering into the page-selection string consumed
// by pdfjam.
package sequence

import (
	"strconv"
	"strings"
)

// blankToken is pdfjam's empty-page marker inside a page list.
const blankToken = "{}"

// Pad appends blank markers until len(seq) is a multiple of cells. The default
// ordering already fills whole sheets, but the orderer is injectable and the
// guarantee has to hold regardless of what it returns.
func Pad(seq []int, cells int) []int {
	if cells <= 0 {
		return seq
	}
	for len(seq)%cells != 0 {
		seq = append(seq, 0)
	}
	return seq
}

// Serialize renders the sequence in pdfjam page-list syntax: decimal page
// numbers, {} for blanks, comma-separated.
func Serialize(seq []int) string {
	tokens := make([]string, len(seq))
	for i, page := range seq {
		if page == 0 {
			tokens[i] = blankToken
		} else {
			tokens[i] = strconv.Itoa(page)
		}
	}
	return strings.Join(tokens, ",")
}
