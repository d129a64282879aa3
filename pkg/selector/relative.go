package selector

import (
	"fmt"
	"log"
	"strings"

	"github.com/getmaxun/maxun-sub002/pkg/dom"
)

// EvaluateWithin resolves a relative pattern inside one scope element. A
// pattern like `div[contains(@class, "meta")]/a` is a chain of child steps
// from the scope; a leading "//" makes the first step a descendant search.
// Shadow subtrees are traversed transparently, like the manual document
// walk. Malformed patterns yield an empty result.
func EvaluateWithin(scope *dom.Element, rel string) (result []*dom.Element) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("selector: recovered evaluating %q within scope: %v", rel, r)
			result = nil
		}
	}()

	if scope == nil || strings.TrimSpace(rel) == "" {
		return nil
	}
	segs, err := parseSegments(strings.TrimSpace(rel))
	if err != nil {
		log.Printf("selector: cannot parse relative pattern %q: %v", rel, err)
		return nil
	}
	// A bare first step is a child step relative to the scope, not a
	// descendant search; parseSegments defaults it the other way for
	// document paths.
	if !strings.HasPrefix(strings.TrimSpace(rel), "//") {
		segs[0].Descendant = false
	}

	contexts := []*dom.Element{scope}
	for _, seg := range segs {
		matched := resolveSegment(contexts, seg, false)
		matched = applyOrdinal(matched, seg)
		if len(matched) == 0 {
			return nil
		}
		contexts = matched
	}
	return dedupeOrdered(contexts)
}

// GeneralSegment builds the generalized one-step pattern for an element:
// its tag plus a class-contains predicate when a stable class exists, never
// an ordinal.
func GeneralSegment(el *dom.Element) string {
	tag := el.Tag()
	if cls := stableClass(el.Classes()); cls != "" {
		return fmt.Sprintf(`%s[contains(@class, "%s")]`, tag, escapePredValue(cls))
	}
	return tag
}

// JoinChild appends a relative child pattern to a document-level path.
func JoinChild(base, rel string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/")
}

// RelativeTo strips a base path prefix off a full child path, returning the
// remaining relative pattern and whether the prefix matched.
func RelativeTo(full, base string) (string, bool) {
	if !strings.HasPrefix(full, base) {
		return "", false
	}
	rel := strings.TrimLeft(strings.TrimPrefix(full, base), "/")
	if rel == "" {
		return "", false
	}
	return rel, true
}
