package selector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/getmaxun/maxun-sub002/pkg/dom"
	"github.com/getmaxun/maxun-sub002/pkg/models"
)

// crossKind marks what kind of boundary separates two subpaths.
type crossKind int

const (
	crossNone crossKind = iota
	crossShadow
	crossIframe
)

// segment is one tag step of a SelectorPath with its parsed predicates.
type segment struct {
	Tag        string
	Preds      []predicate
	Descendant bool // true for "//tag", false for "/tag"
}

// predKind enumerates the predicate forms the engine understands.
type predKind int

const (
	predOrdinal predKind = iota
	predAttrEq
	predAttrContains
	predClassContains
	predTextEq
	predTextContains
	predChildCountEq
	predChildCountZero
)

type predicate struct {
	Kind  predKind
	Name  string // attribute name for attr predicates
	Value string
	Num   int // ordinal position or child count
}

// subpath is a run of segments between two boundary crossings.
type subpath struct {
	Cross    crossKind // how this subpath is entered
	Segments []segment
}

var (
	reOrdinal       = regexp.MustCompile(`^\d+$`)
	reAttrEq        = regexp.MustCompile(`^@([\w:-]+)\s*=\s*["'](.*)["']$`)
	reAttrContains  = regexp.MustCompile(`^contains\(@([\w:-]+)\s*,\s*["'](.*)["']\)$`)
	reTextEq        = regexp.MustCompile(`^text\(\)\s*=\s*["'](.*)["']$`)
	reTextContains  = regexp.MustCompile(`^contains\(text\(\)\s*,\s*["'](.*)["']\)$`)
	reChildCountEq  = regexp.MustCompile(`^count\(\*\)\s*=\s*(\d+)$`)
	reChildCountNot = regexp.MustCompile(`^not\(\*\)$`)
)

// parsePath splits a SelectorPath into subpaths at shadow/iframe crossing
// tokens and parses each subpath's segments. Malformed input returns an
// error; the evaluator turns that into an empty result.
func parsePath(path string) ([]subpath, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty selector path")
	}

	var subs []subpath
	cross := crossNone
	rest := path
	for rest != "" {
		part, nextCross, tail := cutAtCross(rest)
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty subpath in %q", path)
		}
		segs, err := parseSegments(part)
		if err != nil {
			return nil, err
		}
		subs = append(subs, subpath{Cross: cross, Segments: segs})
		cross = nextCross
		rest = tail
	}
	return subs, nil
}

// cutAtCross finds the earliest crossing token outside predicate brackets.
// The iframe token ":>>" must be checked before the shadow token ">>" since
// the latter is a suffix of the former.
func cutAtCross(s string) (part string, kind crossKind, rest string) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 && strings.HasPrefix(s[i:], models.IframeCrossToken) {
				return s[:i], crossIframe, s[i+len(models.IframeCrossToken):]
			}
		case '>':
			if depth == 0 && strings.HasPrefix(s[i:], models.ShadowCrossToken) {
				return s[:i], crossShadow, s[i+len(models.ShadowCrossToken):]
			}
		}
	}
	return s, crossNone, ""
}

// parseSegments parses one "//a/b[pred]/c" run. Slashes inside predicate
// brackets are not separators.
func parseSegments(s string) ([]segment, error) {
	var segs []segment
	i := 0
	for i < len(s) {
		descendant := false
		if strings.HasPrefix(s[i:], "//") {
			descendant = true
			i += 2
		} else if s[i] == '/' {
			i++
		} else if len(segs) == 0 {
			// A relative path starts without a slash; treat as descendant.
			descendant = true
		} else {
			return nil, fmt.Errorf("malformed path near %q", s[i:])
		}

		start := i
		depth := 0
		for i < len(s) {
			if s[i] == '[' {
				depth++
			} else if s[i] == ']' {
				depth--
				if depth < 0 {
					return nil, fmt.Errorf("unbalanced brackets in %q", s)
				}
			} else if s[i] == '/' && depth == 0 {
				break
			}
			i++
		}
		if depth != 0 {
			return nil, fmt.Errorf("unbalanced brackets in %q", s)
		}
		raw := s[start:i]
		if raw == "" {
			return nil, fmt.Errorf("empty segment in %q", s)
		}
		seg, err := parseSegment(raw, descendant)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("no segments in %q", s)
	}
	return segs, nil
}

func parseSegment(raw string, descendant bool) (segment, error) {
	seg := segment{Descendant: descendant}
	br := strings.IndexByte(raw, '[')
	if br < 0 {
		seg.Tag = strings.ToLower(raw)
		return seg, validTag(seg)
	}
	seg.Tag = strings.ToLower(raw[:br])
	rest := raw[br:]
	for rest != "" {
		if rest[0] != '[' {
			return seg, fmt.Errorf("malformed predicates in %q", raw)
		}
		depth := 0
		end := -1
		for j := 0; j < len(rest); j++ {
			if rest[j] == '[' {
				depth++
			} else if rest[j] == ']' {
				depth--
				if depth == 0 {
					end = j
					break
				}
			}
		}
		if end < 0 {
			return seg, fmt.Errorf("unbalanced predicate in %q", raw)
		}
		pred, err := parsePredicate(strings.TrimSpace(rest[1:end]))
		if err != nil {
			return seg, err
		}
		seg.Preds = append(seg.Preds, pred)
		rest = rest[end+1:]
	}
	return seg, validTag(seg)
}

func validTag(seg segment) error {
	if seg.Tag == "" {
		return fmt.Errorf("segment without tag")
	}
	if seg.Tag == "*" {
		return nil
	}
	for _, r := range seg.Tag {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return fmt.Errorf("invalid tag %q", seg.Tag)
		}
	}
	return nil
}

func parsePredicate(expr string) (predicate, error) {
	switch {
	case reOrdinal.MatchString(expr):
		n, _ := strconv.Atoi(expr)
		return predicate{Kind: predOrdinal, Num: n}, nil
	case reChildCountNot.MatchString(expr):
		return predicate{Kind: predChildCountZero}, nil
	}
	if m := reChildCountEq.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		return predicate{Kind: predChildCountEq, Num: n}, nil
	}
	if m := reTextEq.FindStringSubmatch(expr); m != nil {
		return predicate{Kind: predTextEq, Value: m[1]}, nil
	}
	if m := reTextContains.FindStringSubmatch(expr); m != nil {
		return predicate{Kind: predTextContains, Value: m[1]}, nil
	}
	if m := reAttrEq.FindStringSubmatch(expr); m != nil {
		return predicate{Kind: predAttrEq, Name: m[1], Value: m[2]}, nil
	}
	if m := reAttrContains.FindStringSubmatch(expr); m != nil {
		if m[1] == "class" {
			return predicate{Kind: predClassContains, Value: m[2]}, nil
		}
		return predicate{Kind: predAttrContains, Name: m[1], Value: m[2]}, nil
	}
	return predicate{}, fmt.Errorf("unsupported predicate %q", expr)
}

// hasCrossToken reports whether the path crosses a shadow or iframe boundary.
func hasCrossToken(path string) bool {
	_, kind, _ := cutAtCross(path)
	return kind != crossNone
}

// HasShadowCross reports whether the path contains a shadow-crossing token.
func HasShadowCross(path string) bool {
	rest := path
	for rest != "" {
		var kind crossKind
		_, kind, rest = cutAtCross(rest)
		if kind == crossShadow {
			return true
		}
	}
	return false
}

// ==================== Path Construction ====================

// PathFor builds a concrete SelectorPath for an element, walking up to the
// snapshot root. Shadow-root containers along the way become shadow-crossing
// tokens, inlined iframe containers become iframe-crossing tokens. The
// result pins positions with ordinal predicates; Normalize generalizes it.
func PathFor(el *dom.Element) string {
	if el == nil {
		return ""
	}

	type link struct {
		seg   string
		cross crossKind
	}
	var chain []link

	for cur := el; cur != nil; cur = cur.Parent() {
		if cur.IsShadowContainer() {
			chain = append(chain, link{cross: crossShadow})
			continue
		}
		if cur.IsIframeContainer() && !cur.Same(el) {
			chain = append(chain, link{cross: crossIframe})
			continue
		}
		chain = append(chain, link{seg: segmentFor(cur)})
	}

	// chain is leaf-first; emit root-first.
	var b strings.Builder
	b.WriteString("//")
	first := true
	for i := len(chain) - 1; i >= 0; i-- {
		l := chain[i]
		if l.cross != crossNone {
			if l.cross == crossShadow {
				b.WriteString(" " + models.ShadowCrossToken + " //")
			} else {
				b.WriteString(" " + models.IframeCrossToken + " //")
			}
			first = true
			continue
		}
		if !first {
			b.WriteString("/")
		}
		b.WriteString(l.seg)
		first = false
	}
	return b.String()
}

// segmentFor picks the most stable predicate for one path step, in the
// priority order id > stable class > bare tag, then pins the position among
// same-tag siblings when the step is ambiguous.
func segmentFor(el *dom.Element) string {
	tag := el.Tag()

	if id, ok := el.Attr("id"); ok && id != "" && !looksGenerated(id) {
		return fmt.Sprintf(`%s[@id="%s"]`, tag, escapePredValue(id))
	}

	seg := tag
	if cls := stableClass(el.Classes()); cls != "" {
		seg = fmt.Sprintf(`%s[contains(@class, "%s")]`, tag, escapePredValue(cls))
	}

	// Pin the ordinal among same-tag siblings so the concrete path resolves
	// to exactly this element before generalization.
	parent := el.Parent()
	if parent != nil {
		pos, count := 0, 0
		for _, sib := range parent.Children() {
			if sib.Tag() == tag {
				count++
				if sib.Same(el) {
					pos = count
				}
			}
		}
		if count > 1 && pos > 0 {
			seg += fmt.Sprintf("[%d]", pos)
		}
	}
	return seg
}

// dynamicClassPatterns match class names that are unlikely to survive a
// redeploy: content hashes, CSS-in-JS output, minified names.
var dynamicClassPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[a-z]+-[a-f0-9]{6,}$`),
	regexp.MustCompile(`^css-[a-z0-9]+$`),
	regexp.MustCompile(`^_[a-zA-Z0-9]+$`),
	regexp.MustCompile(`[0-9]{3,}`),
}

func stableClass(classes []string) string {
	for _, cls := range classes {
		if cls == "" {
			continue
		}
		dynamic := false
		for _, pat := range dynamicClassPatterns {
			if pat.MatchString(cls) {
				dynamic = true
				break
			}
		}
		if !dynamic && len(cls) > 2 && len(cls) < 30 {
			return cls
		}
	}
	return ""
}

// looksGenerated checks if an identifier mixes letters and digits, which
// usually means a framework generated it.
func looksGenerated(s string) bool {
	hasLetter := false
	hasNumber := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsNumber(r) {
			hasNumber = true
		}
		if hasLetter && hasNumber {
			return true
		}
	}
	return false
}

func escapePredValue(s string) string {
	return strings.ReplaceAll(s, `"`, ``)
}
