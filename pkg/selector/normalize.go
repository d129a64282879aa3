package selector

import (
	"regexp"
	"strings"
)

// reNumericPredicate matches a pure positional predicate like "[3]". Mixed
// segments such as li[3][contains(@class, "x")] lose only the numeric part;
// attribute, class-contains, text and child-count predicates survive.
var reNumericPredicate = regexp.MustCompile(`\[\d+\]`)

// Normalize generalizes a concrete SelectorPath so it matches every sibling
// the pattern describes instead of one pinned instance: all numeric ordinal
// predicates are stripped, everything else is preserved. Idempotent.
func Normalize(path string) string {
	return strings.TrimSpace(reNumericPredicate.ReplaceAllString(path, ""))
}

// IsGeneralized reports whether a path carries no positional pins.
func IsGeneralized(path string) bool {
	return !reNumericPredicate.MatchString(path)
}
