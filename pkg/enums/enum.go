// Package enums holds the string enums persisted in the database and carried
// in tokens and events.
package enums

import (
	"fmt"
	"slices"
)

func member[T ~string](v T, known []T) bool {
	return slices.Contains(known, v)
}

// parse is exact: no trimming or case folding.
func parse[T ~string](raw, kind string, known []T) (T, error) {
	if v := T(raw); member(v, known) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
