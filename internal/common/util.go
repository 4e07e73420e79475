package common

import (
	"strings"
	"unicode/utf8"
)

// PublicName masks a display name so that winners can be announced without
// revealing their full name, e.g. "Alice Nguyen" becomes "Alice N.".
func PublicName(name string) string {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	}

	last := fields[len(fields)-1]
	r, _ := utf8.DecodeRuneInString(last)
	return strings.Join(fields[:len(fields)-1], " ") + " " + string(r) + "."
}

// Batch splits a into two slices. DO NOT write on the returned value.
func Batch[T any](a *[]T, n int) []T {
	if len(*a) > n {
		batch := (*a)[:n]
		*a = (*a)[n:]
		return batch
	}

	b := (*a)
	*a = (*a)[:0]
	return b
}
