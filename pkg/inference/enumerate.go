package inference

import (
	"github.com/getmaxun/maxun-sub002/pkg/dom"
	"github.com/getmaxun/maxun-sub002/pkg/selector"
)

const (
	// maxSampleInstances caps how many list instances validation inspects.
	maxSampleInstances = 10
	// maxEnumerateDepth bounds the subtree walk that proposes patterns.
	maxEnumerateDepth = 5
	// minValidatedInstances is the repetition bar: a child pattern must be
	// present in at least this many sampled instances to survive.
	minValidatedInstances = 2
	// ordinalCoverage guards ordinal-carrying patterns against over-fitting
	// to one instance's internal numbering.
	ordinalCoverage = 0.6
)

// EnumerateAndValidate proposes descendant patterns under the first list
// instance and keeps only those that recur across sampled instances.
//
// Validation counts, over the first min(10, total) instances, how many
// contain at least one match for the pattern. Patterns matching fewer than
// two sampled instances are dropped, unless document-level evaluation of
// the full pattern yields nothing at all while the list lives behind a
// shadow boundary; negative evidence is unreliable there, so such patterns
// are kept optimistically.
func EnumerateAndValidate(snap *dom.Snapshot, listSelector string, shadowHint bool) []string {
	instances := selector.EvaluateAll(snap, listSelector, shadowHint)
	if len(instances) == 0 {
		return nil
	}

	first := instances[0]
	patterns := enumeratePatterns(first)
	if len(patterns) == 0 {
		return nil
	}

	sample := instances
	if len(sample) > maxSampleInstances {
		sample = sample[:maxSampleInstances]
	}

	shadowy := shadowHint || selector.HasShadowCross(listSelector)

	var kept []string
	for _, rel := range patterns {
		full := selector.JoinChild(listSelector, rel)

		// Ordinal guard: a pattern pinned to a position inside the instance
		// must still be broadly present in its un-ordinalled form.
		if !selector.IsGeneralized(rel) && len(instances) >= 3 {
			loose := selector.Normalize(rel)
			hits := 0
			for _, inst := range instances {
				if len(selector.EvaluateWithin(inst, loose)) > 0 {
					hits++
				}
			}
			if float64(hits) < ordinalCoverage*float64(len(instances)) {
				continue
			}
		}

		docMatches := selector.EvaluateAll(snap, full, shadowHint)
		if len(docMatches) == 0 {
			if shadowy {
				// Ambiguous shadow case: keep without counting.
				kept = append(kept, full)
			}
			continue
		}

		count := 0
		for _, inst := range sample {
			if len(selector.EvaluateWithin(inst, rel)) > 0 {
				count++
			}
		}
		if count >= minValidatedInstances {
			kept = append(kept, full)
		}
	}
	return kept
}

// enumeratePatterns walks the first instance's subtree to a bounded depth
// and records the distinct relative child-chain patterns it sees. Shadow
// subtrees are included transparently.
func enumeratePatterns(instance *dom.Element) []string {
	seen := make(map[string]bool)
	var out []string

	var walk func(el *dom.Element, prefix string, depth int)
	walk = func(el *dom.Element, prefix string, depth int) {
		if depth > maxEnumerateDepth {
			return
		}
		children := el.Children()
		if sr := el.ShadowRoot(); sr != nil {
			children = append(children, sr.Children()...)
		}
		for _, child := range children {
			step := selector.GeneralSegment(child)
			rel := step
			if prefix != "" {
				rel = prefix + "/" + step
			}
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
			walk(child, rel, depth+1)
		}
	}
	walk(instance, "", 1)
	return out
}
