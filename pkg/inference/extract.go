package inference

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/getmaxun/maxun-sub002/pkg/dom"
	"github.com/getmaxun/maxun-sub002/pkg/models"
	"github.com/getmaxun/maxun-sub002/pkg/selector"
)

// maxLeafDescent bounds how deep the extractor searches for the contentful
// leaf under a generic container.
const maxLeafDescent = 4

// Candidate pairs a serializable FieldCandidate with the element it was
// resolved from. The element is needed for containment deduplication and is
// dropped at the hand-off boundary.
type Candidate struct {
	models.FieldCandidate
	El *dom.Element
}

// Extract resolves a validated child selector against the first list
// instance and emits field candidates classified by tag:
//
//   - anchors yield up to two candidates, text and href, sharing the selector
//     but bound to different attributes;
//   - images yield src and alt candidates;
//   - anything else descends to the deepest contentful leaf for a text
//     candidate, plus an href candidate for the nearest enclosing anchor
//     when one carries a usable link.
//
// Relative href/src values are resolved absolute against the snapshot base.
func Extract(snap *dom.Snapshot, childSelector, listSelector string, shadowHint bool) []Candidate {
	instances := selector.EvaluateAll(snap, listSelector, shadowHint)
	if len(instances) == 0 {
		return nil
	}
	first := instances[0]

	var matches []*dom.Element
	for _, el := range selector.EvaluateAll(snap, childSelector, shadowHint) {
		if first.Same(el) || first.Contains(el) {
			matches = append(matches, el)
		}
	}
	if len(matches) == 0 {
		// Document-level evaluation can come up empty behind shadow
		// boundaries; fall back to the relative walk inside the instance.
		if rel, ok := selector.RelativeTo(childSelector, listSelector); ok {
			matches = selector.EvaluateWithin(first, rel)
		}
	}

	isShadow := shadowHint || selector.HasShadowCross(childSelector)

	var out []Candidate
	for _, el := range matches {
		switch el.Tag() {
		case "a":
			out = append(out, anchorCandidates(snap, el, childSelector, isShadow)...)
		case "img":
			out = append(out, imageCandidates(snap, el, childSelector, isShadow)...)
		default:
			out = append(out, genericCandidates(snap, el, first, childSelector, isShadow)...)
		}
	}
	return out
}

func anchorCandidates(snap *dom.Snapshot, el *dom.Element, sel string, isShadow bool) []Candidate {
	var out []Candidate
	if text := elementText(el); ValidData(text) {
		out = append(out, newCandidate(el, sel, "a", models.AttrInnerText, text, isShadow))
	}
	if href, ok := el.Attr("href"); ok && UsableHref(href) {
		out = append(out, newCandidate(el, sel, "a", models.AttrHref, snap.ResolveURL(href), isShadow))
	}
	return out
}

func imageCandidates(snap *dom.Snapshot, el *dom.Element, sel string, isShadow bool) []Candidate {
	var out []Candidate
	if src, ok := el.Attr("src"); ok && strings.TrimSpace(src) != "" {
		out = append(out, newCandidate(el, sel, "img", models.AttrSrc, snap.ResolveURL(src), isShadow))
	}
	if alt, ok := el.Attr("alt"); ok && ValidData(alt) {
		out = append(out, newCandidate(el, sel, "img", models.AttrAlt, strings.TrimSpace(alt), isShadow))
	}
	return out
}

func genericCandidates(snap *dom.Snapshot, el, instanceRoot *dom.Element, sel string, isShadow bool) []Candidate {
	var out []Candidate

	leaf := deepestContentfulLeaf(el)
	if text := elementText(leaf); ValidData(text) {
		leafSel := sel
		if !leaf.Same(el) {
			leafSel = selector.Normalize(selector.PathFor(leaf))
		}
		out = append(out, newCandidate(leaf, leafSel, leaf.Tag(), models.AttrInnerText, text, isShadow))
	}

	if anchor := enclosingAnchor(leaf, instanceRoot); anchor != nil {
		if href, ok := anchor.Attr("href"); ok && UsableHref(href) {
			anchorSel := selector.Normalize(selector.PathFor(anchor))
			out = append(out, newCandidate(anchor, anchorSel, "a", models.AttrHref, snap.ResolveURL(href), isShadow))
		}
	}
	return out
}

func newCandidate(el *dom.Element, sel, tag, attribute, data string, isShadow bool) Candidate {
	pos, _ := el.BoundingBox()
	return Candidate{
		FieldCandidate: models.FieldCandidate{
			ID: uuid.New().String(),
			SelectorObj: models.SelectorObj{
				Selector:  sel,
				Tag:       tag,
				Attribute: attribute,
				IsShadow:  isShadow,
			},
			Data:          strings.TrimSpace(data),
			Position:      pos,
			IsLeaf:        len(el.Children()) == 0,
			Depth:         el.Depth(),
			SuggestedName: SuggestName(data, attribute),
		},
		El: el,
	}
}

// elementText prefers shadow-subtree text over light-DOM text, so custom
// elements whose content lives behind the boundary still yield a value.
func elementText(el *dom.Element) string {
	if sh := el.ShadowText(); ValidData(sh) {
		return sh
	}
	return el.Text()
}

// deepestContentfulLeaf descends through single text-bearing children to
// find the most specific element that still carries the text, bounded to
// keep traversal cheap on deep markup.
func deepestContentfulLeaf(el *dom.Element) *dom.Element {
	cur := el
	for i := 0; i < maxLeafDescent; i++ {
		var next *dom.Element
		for _, child := range cur.Children() {
			if ValidData(elementText(child)) {
				next = child
				break
			}
		}
		if next == nil {
			break
		}
		cur = next
	}
	return cur
}

// enclosingAnchor walks from el up to (and excluding) root looking for an
// <a> ancestor.
func enclosingAnchor(el, root *dom.Element) *dom.Element {
	for cur := el; cur != nil && !cur.Same(root); cur = cur.Parent() {
		if cur.Tag() == "a" {
			return cur
		}
	}
	return nil
}

// ValidData is the validity filter all emitted values must pass: more than
// one character after trimming, and not pure punctuation or whitespace.
func ValidData(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) <= 1 {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// UsableHref rejects placeholder and script-invoking link targets.
func UsableHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(href), "javascript:")
}
