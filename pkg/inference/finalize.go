package inference

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getmaxun/maxun-sub002/pkg/models"
)

const (
	// rowPixelTolerance treats candidates within this many pixels of
	// vertical distance as the same visual row.
	rowPixelTolerance = 8.0
	// aggregateCoverage is the share of a parent's text its children must
	// jointly reproduce before the parent is judged a redundant aggregate.
	aggregateCoverage = 0.7
)

// Finalize turns raw candidates into the labeled field set: spatial sort,
// containment dedup (anchors survive nesting), redundant-aggregate parent
// removal, content-level dedup, then sequential labels with no gaps.
func Finalize(candidates []Candidate) models.FieldSet {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if ValidData(c.Data) {
			kept = append(kept, c)
		}
	}

	// Aggregate parents must be judged before containment dedup runs, or
	// the children that prove them redundant are already gone.
	kept = sortSpatially(kept)
	kept = dropRedundantAggregates(kept)
	kept = dropContained(kept)
	kept = dedupeByData(kept)

	fields := make(models.FieldSet, len(kept))
	for i, c := range kept {
		fields[fmt.Sprintf("Label %d", i+1)] = c.FieldCandidate
	}
	return fields
}

// sortSpatially orders candidates row-major: ascending y, with ties inside
// the pixel tolerance broken by ascending x. Stable so that equal positions
// keep insertion order.
func sortSpatially(cands []Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)
	sort.SliceStable(out, func(i, j int) bool {
		dy := out[i].Position.Y - out[j].Position.Y
		if dy < -rowPixelTolerance {
			return true
		}
		if dy > rowPixelTolerance {
			return false
		}
		return out[i].Position.X < out[j].Position.X
	})
	return out
}

// dropContained removes candidates whose element sits inside another
// candidate's element. Anchors are always preserved even when nested, so
// link targets are never lost to a textier ancestor. Earlier-added, more
// specific candidates win ties.
func dropContained(cands []Candidate) []Candidate {
	drop := make([]bool, len(cands))
	for i, a := range cands {
		if drop[i] || a.El == nil {
			continue
		}
		for j, b := range cands {
			if i == j || drop[j] || b.El == nil {
				continue
			}
			if a.El.Contains(b.El) && b.SelectorObj.Tag != "a" {
				drop[j] = true
			}
		}
	}
	var out []Candidate
	for i, c := range cands {
		if !drop[i] {
			out = append(out, c)
		}
	}
	return out
}

// dropRedundantAggregates removes a parent-level candidate when its child
// candidates already carry the content: at least two child values appear
// verbatim inside the parent's text and together cover more than 70% of it.
func dropRedundantAggregates(cands []Candidate) []Candidate {
	drop := make([]bool, len(cands))
	for i, parent := range cands {
		if drop[i] || parent.El == nil || parent.SelectorObj.Attribute != models.AttrInnerText {
			continue
		}
		parentText := parent.Data
		if parentText == "" {
			continue
		}
		covered := 0
		children := 0
		for j, child := range cands {
			if i == j || drop[j] || child.El == nil {
				continue
			}
			if !parent.El.Contains(child.El) {
				continue
			}
			if child.Data != "" && strings.Contains(parentText, child.Data) {
				children++
				covered += len(child.Data)
			}
		}
		if children >= 2 && float64(covered) > aggregateCoverage*float64(len(parentText)) {
			drop[i] = true
		}
	}
	var out []Candidate
	for i, c := range cands {
		if !drop[i] {
			out = append(out, c)
		}
	}
	return out
}

// dedupeByData collapses candidates with equal normalized values, keeping
// the first in final order.
func dedupeByData(cands []Candidate) []Candidate {
	seen := make(map[string]bool, len(cands))
	var out []Candidate
	for _, c := range cands {
		key := strings.ToLower(strings.TrimSpace(c.Data))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
