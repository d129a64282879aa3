package inference

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getmaxun/maxun-sub002/pkg/dom"
	"github.com/getmaxun/maxun-sub002/pkg/models"
	"github.com/getmaxun/maxun-sub002/pkg/selector"
)

// ReplayFields applies a stored list descriptor and field set to a fresh
// snapshot and emits one row per list instance. Fields whose selector matches
// nothing inside an instance simply leave the label unset for that row; a row
// with no values at all is skipped.
func ReplayFields(snap *dom.Snapshot, list *models.ListDescriptor, fields models.FieldSet, pageURL string) []models.ExtractedRow {
	if list == nil || len(fields) == 0 {
		return nil
	}

	instances := selector.EvaluateAll(snap, list.ListSelector, list.IsShadow)
	if len(instances) == 0 {
		return nil
	}

	labels := sortedLabels(fields)

	// Resolve each field selector once at document level, then assign
	// matches to instances by containment. Falls back to a relative walk
	// per instance when the document pass finds nothing.
	matchesByLabel := make(map[string][]*dom.Element, len(labels))
	for _, label := range labels {
		field := fields[label]
		matchesByLabel[label] = selector.EvaluateAll(snap, field.SelectorObj.Selector, field.SelectorObj.IsShadow)
	}

	var rows []models.ExtractedRow
	for i, inst := range instances {
		values := make(map[string]string, len(labels))
		for _, label := range labels {
			field := fields[label]

			var el *dom.Element
			for _, m := range matchesByLabel[label] {
				if inst.Same(m) || inst.Contains(m) {
					el = m
					break
				}
			}
			if el == nil {
				if rel, ok := selector.RelativeTo(field.SelectorObj.Selector, list.ListSelector); ok {
					if found := selector.EvaluateWithin(inst, rel); len(found) > 0 {
						el = found[0]
					}
				}
			}
			if el == nil {
				continue
			}

			if value := readAttribute(snap, el, field.SelectorObj.Attribute); value != "" {
				values[label] = value
			}
		}
		if len(values) == 0 {
			continue
		}
		rows = append(rows, models.ExtractedRow{
			ID:        uuid.New().String(),
			Ordinal:   i,
			PageURL:   pageURL,
			Values:    values,
			ScrapedAt: time.Now(),
		})
	}
	return rows
}

func readAttribute(snap *dom.Snapshot, el *dom.Element, attribute string) string {
	switch attribute {
	case models.AttrHref:
		if href, ok := el.Attr("href"); ok && UsableHref(href) {
			return snap.ResolveURL(href)
		}
		return ""
	case models.AttrSrc:
		if src, ok := el.Attr("src"); ok && strings.TrimSpace(src) != "" {
			return snap.ResolveURL(src)
		}
		return ""
	case models.AttrAlt:
		alt, _ := el.Attr("alt")
		return strings.TrimSpace(alt)
	default:
		return strings.TrimSpace(elementText(el))
	}
}

func sortedLabels(fields models.FieldSet) []string {
	labels := make([]string, 0, len(fields))
	for label := range fields {
		labels = append(labels, label)
	}
	// "Label 2" sorts before "Label 10" by length-then-lex.
	sort.Slice(labels, func(i, j int) bool {
		if len(labels[i]) != len(labels[j]) {
			return len(labels[i]) < len(labels[j])
		}
		return labels[i] < labels[j]
	})
	return labels
}
