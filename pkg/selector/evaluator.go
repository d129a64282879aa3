package selector

import (
	"log"
	"sort"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/getmaxun/maxun-sub002/pkg/dom"
)

// EvaluateAll resolves a SelectorPath against a snapshot and returns every
// matching element in document order. Native XPath evaluation is attempted
// first; when it yields nothing and the path crosses a shadow boundary (or
// the caller hints the interaction happened inside one), a manual
// segment-by-segment walk takes over, which lets a path jump into nested
// shadow trees without explicit syntax at every boundary.
//
// This is a hard error boundary: malformed paths, XPath compile failures and
// traversal panics all degrade to an empty result. Callers never crash on an
// invalid selector.
func EvaluateAll(snap *dom.Snapshot, path string, shadowHint bool) (result []*dom.Element) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("selector: recovered evaluating %q: %v", path, r)
			result = nil
		}
	}()

	if snap == nil || strings.TrimSpace(path) == "" {
		return nil
	}

	crossing := hasCrossToken(path) || HasShadowCross(path)
	if !crossing {
		if found := evaluateNative(snap, path); len(found) > 0 {
			return found
		}
		if !shadowHint {
			return nil
		}
	}

	return evaluateManual(snap, path)
}

// EvaluateFirst returns the first match of EvaluateAll, or nil.
func EvaluateFirst(snap *dom.Snapshot, path string, shadowHint bool) *dom.Element {
	all := EvaluateAll(snap, path, shadowHint)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// evaluateNative runs the path through the XPath engine over the snapshot's
// parse tree. Compile errors are logged and reported as no match.
func evaluateNative(snap *dom.Snapshot, path string) []*dom.Element {
	root := snap.RootNode()
	if root == nil {
		return nil
	}
	expr, err := xpath.Compile(path)
	if err != nil {
		log.Printf("selector: %q is not valid XPath: %v", path, err)
		return nil
	}
	nodes := htmlquery.QuerySelectorAll(root, expr)
	var out []*dom.Element
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, snap.Element(n))
		}
	}
	return out
}

// evaluateManual walks the path segment by segment. Each resolved element's
// shadow root is enqueued as a parallel context for the next segment, and
// crossing tokens force the context set into the shadow or iframe subtree.
func evaluateManual(snap *dom.Snapshot, path string) []*dom.Element {
	subs, err := parsePath(path)
	if err != nil {
		log.Printf("selector: cannot parse %q: %v", path, err)
		return nil
	}

	root := snap.Root()
	if root == nil {
		return nil
	}
	contexts := []*dom.Element{root}

	for i, sub := range subs {
		switch sub.Cross {
		case crossShadow:
			contexts = shadowContexts(contexts)
		case crossIframe:
			contexts = iframeContexts(contexts)
		}
		if len(contexts) == 0 {
			return nil
		}

		for j, seg := range sub.Segments {
			// The path root itself may be matched by the first descendant
			// segment of the first subpath.
			includeSelf := i == 0 && j == 0
			matched := resolveSegment(contexts, seg, includeSelf)
			matched = applyOrdinal(matched, seg)
			if len(matched) == 0 {
				return nil
			}
			contexts = matched
		}
	}

	return dedupeOrdered(contexts)
}

// resolveSegment collects candidates from each context (children for "/",
// full subtree for "//", shadow subtrees included transparently in both) and
// filters them by tag and predicates.
func resolveSegment(contexts []*dom.Element, seg segment, includeSelf bool) []*dom.Element {
	var matched []*dom.Element
	for _, ctx := range contexts {
		var candidates []*dom.Element
		if seg.Descendant {
			candidates = descendantsWithShadow(ctx, includeSelf)
		} else {
			candidates = childrenWithShadow(ctx)
		}
		for _, cand := range candidates {
			if matchSegment(cand, seg) {
				matched = append(matched, cand)
			}
		}
	}
	return matched
}

// applyOrdinal selects the nth element of the aggregated matched set when
// the segment carries a bare ordinal. Ordinals are resolved by position in
// the matched set, not by re-filtering.
func applyOrdinal(matched []*dom.Element, seg segment) []*dom.Element {
	for _, p := range seg.Preds {
		if p.Kind == predOrdinal {
			ordered := dedupeOrdered(matched)
			if p.Num >= 1 && p.Num <= len(ordered) {
				return ordered[p.Num-1 : p.Num]
			}
			return ordered
		}
	}
	return matched
}

// childrenWithShadow returns an element's children plus the children of its
// shadow root, so a "/" step can pass a shadow boundary without syntax.
func childrenWithShadow(el *dom.Element) []*dom.Element {
	out := el.Children()
	if sr := el.ShadowRoot(); sr != nil {
		out = append(out, sr.Children()...)
	}
	return out
}

func descendantsWithShadow(el *dom.Element, includeSelf bool) []*dom.Element {
	var out []*dom.Element
	if includeSelf {
		out = append(out, el)
	}
	var walk func(e *dom.Element)
	walk = func(e *dom.Element) {
		for _, c := range childrenWithShadow(e) {
			out = append(out, c)
			walk(c)
		}
	}
	walk(el)
	return out
}

func shadowContexts(contexts []*dom.Element) []*dom.Element {
	var out []*dom.Element
	for _, ctx := range contexts {
		if sr := ctx.ShadowRoot(); sr != nil {
			out = append(out, sr)
		}
	}
	return out
}

// iframeContexts keeps only contexts that are (or host) an inlined iframe
// document, so the next subpath resolves inside the frame.
func iframeContexts(contexts []*dom.Element) []*dom.Element {
	var out []*dom.Element
	for _, ctx := range contexts {
		if ctx.IsIframeContainer() {
			out = append(out, ctx)
			continue
		}
		for _, c := range ctx.Children() {
			if c.IsIframeContainer() {
				out = append(out, c)
			}
		}
	}
	return out
}

func matchSegment(el *dom.Element, seg segment) bool {
	if seg.Tag != "*" && el.Tag() != seg.Tag {
		return false
	}
	for _, p := range seg.Preds {
		if !matchPredicate(el, p) {
			return false
		}
	}
	return true
}

func matchPredicate(el *dom.Element, p predicate) bool {
	switch p.Kind {
	case predOrdinal:
		// Handled positionally over the matched set.
		return true
	case predAttrEq:
		v, ok := el.Attr(p.Name)
		return ok && v == p.Value
	case predAttrContains:
		v, ok := el.Attr(p.Name)
		return ok && strings.Contains(v, p.Value)
	case predClassContains:
		for _, cls := range el.Classes() {
			if strings.Contains(cls, p.Value) {
				return true
			}
		}
		return false
	case predTextEq:
		return el.Text() == p.Value
	case predTextContains:
		return strings.Contains(el.Text(), p.Value)
	case predChildCountEq:
		return len(el.Children()) == p.Num
	case predChildCountZero:
		return len(el.Children()) == 0
	}
	return false
}

func dedupeOrdered(els []*dom.Element) []*dom.Element {
	seen := make(map[int]bool, len(els))
	var out []*dom.Element
	for _, el := range els {
		key := el.DocumentOrder()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, el)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DocumentOrder() < out[j].DocumentOrder()
	})
	return out
}
