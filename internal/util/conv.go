package util

import (
	"strconv"
)

// MustParseUint converts a path/query parameter to uint, returning 0 when the
// input is not a number.
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}
