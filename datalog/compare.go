package datalog

import (
	"fmt"
	"strings"
)

// CompareValues compares two values and returns:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Numbers order before strings; numbers compare by value, strings and
// symbols by codepoint. Nil is less than any non-nil value.
func CompareValues(left, right Value) int {
	if left == nil && right == nil {
		return 0
	}
	if left == nil {
		return -1
	}
	if right == nil {
		return 1
	}

	switch l := left.(type) {
	case int:
		return compareNumeric(int64(l), right)
	case int64:
		return compareNumeric(l, right)
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r)
		}
		// String vs number: numbers order first
		return 1
	}

	// Fall back to string comparison for unknown types
	return strings.Compare(fmt.Sprintf("%v", left), fmt.Sprintf("%v", right))
}

// compareNumeric compares an int64 with another value
func compareNumeric(left int64, right Value) int {
	switch r := right.(type) {
	case int:
		return compareInt64s(left, int64(r))
	case int64:
		return compareInt64s(left, r)
	}
	// Number vs string: numbers order first
	return -1
}

func compareInt64s(left, right int64) int {
	if left < right {
		return -1
	} else if left > right {
		return 1
	}
	return 0
}

// ValuesEqual checks if two values are equal, normalizing int widths.
func ValuesEqual(left, right Value) bool {
	return CompareValues(left, right) == 0
}
