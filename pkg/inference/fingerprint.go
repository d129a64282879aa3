package inference

import (
	"sort"
	"strings"

	"github.com/getmaxun/maxun-sub002/pkg/dom"
)

// Fingerprint is the structural signature used to decide whether two
// elements are "the same kind" for repetition detection: tag, sorted class
// set, attribute shape and a child-count class. Content plays no part, so
// two same-shaped containers with different purposes are indistinguishable;
// that is an accepted heuristic limitation.
type Fingerprint struct {
	Tag        string
	Classes    string
	AttrShape  string
	ChildClass string
}

// Key returns a stable string form usable as a map key.
func (f Fingerprint) Key() string {
	return f.Tag + "|" + f.Classes + "|" + f.AttrShape + "|" + f.ChildClass
}

// FingerprintOf computes an element's structural signature.
func FingerprintOf(el *dom.Element) Fingerprint {
	classes := el.Classes()
	sort.Strings(classes)

	attrs := el.AttrNames()
	sort.Strings(attrs)

	return Fingerprint{
		Tag:        el.Tag(),
		Classes:    strings.Join(classes, "."),
		AttrShape:  strings.Join(attrs, ","),
		ChildClass: childCountClass(len(el.Children())),
	}
}

// childCountClass buckets child counts so that instances of one list may
// differ in trailing optional children without breaking the group.
func childCountClass(n int) string {
	switch {
	case n == 0:
		return "leaf"
	case n <= 2:
		return "few"
	case n <= 6:
		return "some"
	default:
		return "many"
	}
}

// maxGroupHops bounds how far the detector walks up looking for an ancestor
// that belongs to a repeating group.
const maxGroupHops = 5

// GroupResult is the outcome of repetition detection around one element.
type GroupResult struct {
	IsGroup     bool
	Members     []*dom.Element
	Fingerprint Fingerprint
}

// DetectGroup classifies an element as part of a repeating sibling group.
// It fingerprints the element against its parent's children; when the direct
// level yields no group it climbs toward the nearest ancestor with at least
// two structurally-equal children. Purely structural, no data comparison.
func DetectGroup(anchor *dom.Element) GroupResult {
	if anchor == nil {
		return GroupResult{}
	}

	cur := anchor
	for hop := 0; hop < maxGroupHops && cur != nil; hop++ {
		parent := cur.Parent()
		if parent == nil {
			break
		}
		fp := FingerprintOf(cur)
		var members []*dom.Element
		for _, sib := range parent.Children() {
			if FingerprintOf(sib) == fp {
				members = append(members, sib)
			}
		}
		if len(members) >= 2 {
			return GroupResult{IsGroup: true, Members: members, Fingerprint: fp}
		}
		cur = parent
	}

	return GroupResult{
		IsGroup:     false,
		Members:     []*dom.Element{anchor},
		Fingerprint: FingerprintOf(anchor),
	}
}
