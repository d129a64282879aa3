package dom

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/getmaxun/maxun-sub002/pkg/models"
)

// Attributes the page flattener leaves behind when it inlines shadow roots
// and iframe documents. Shadow content is wrapped in a container div carrying
// AttrShadowRoot on the host's subtree; an inlined iframe document replaces
// the iframe element with a container div carrying AttrCapturedIframe.
const (
	AttrShadowRoot     = "data-shadow-root"
	AttrCapturedIframe = "data-captured-iframe"
	AttrBoundingBox    = "data-mx-bbox"
)

// Snapshot is a parsed, immutable view of a captured page. The inference
// engine only ever reads through Snapshot/Element, never through a live
// browser DOM, so tests can drive it with literal HTML strings.
type Snapshot struct {
	doc     *goquery.Document
	base    *url.URL
	order   map[*html.Node]int
	counter int
}

// Parse builds a Snapshot from flattened HTML. baseURL may be empty; it is
// only needed to resolve relative href/src values.
func Parse(htmlStr, baseURL string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot HTML: %w", err)
	}

	s := &Snapshot{
		doc:   doc,
		order: make(map[*html.Node]int),
	}
	if baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil {
			s.base = u
		}
	}

	// Assign document order up front; it doubles as the synthetic position
	// for elements the recorder did not annotate with a bounding box.
	if len(doc.Selection.Nodes) > 0 {
		s.number(doc.Selection.Nodes[0])
	}
	return s, nil
}

func (s *Snapshot) number(n *html.Node) {
	if n.Type == html.ElementNode {
		s.order[n] = s.counter
		s.counter++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.number(c)
	}
}

// RootNode exposes the underlying parse tree root for XPath evaluation.
func (s *Snapshot) RootNode() *html.Node {
	if len(s.doc.Selection.Nodes) == 0 {
		return nil
	}
	return s.doc.Selection.Nodes[0]
}

// Root returns the document element (usually <html>).
func (s *Snapshot) Root() *Element {
	root := s.RootNode()
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return s.wrap(c)
		}
	}
	return nil
}

// Body returns the snapshot's <body> element, or the document element when
// the capture was a fragment without one.
func (s *Snapshot) Body() *Element {
	sel := s.doc.Find("body")
	if len(sel.Nodes) > 0 {
		return s.wrap(sel.Nodes[0])
	}
	return s.Root()
}

// FindCSS resolves a CSS selector through goquery. Used by surfaces that
// speak CSS (the recorder's concrete click targets); the inference engine
// itself works on XPath-like SelectorPaths.
func (s *Snapshot) FindCSS(selector string) []*Element {
	var out []*Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		for _, n := range sel.Nodes {
			out = append(out, s.wrap(n))
		}
	})
	return out
}

// ResolveURL makes a possibly-relative href/src absolute against the
// snapshot's base. Returns the input unchanged when there is no base or the
// value does not parse.
func (s *Snapshot) ResolveURL(raw string) string {
	if s.base == nil || raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return s.base.ResolveReference(u).String()
}

// Element wraps a parse-tree node belonging to this snapshot.
func (s *Snapshot) Element(n *html.Node) *Element {
	return s.wrap(n)
}

func (s *Snapshot) wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{node: n, snap: s}
}

// Element is a read-only handle on one element of the snapshot.
type Element struct {
	node *html.Node
	snap *Snapshot
}

// Node exposes the wrapped parse-tree node.
func (e *Element) Node() *html.Node { return e.node }

// Snapshot returns the owning snapshot.
func (e *Element) Snapshot() *Snapshot { return e.snap }

// Tag returns the lower-cased tag name.
func (e *Element) Tag() string {
	return strings.ToLower(e.node.Data)
}

// Attr returns an attribute value and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrNames returns the element's attribute names, excluding the flattener's
// bookkeeping attributes.
func (e *Element) AttrNames() []string {
	var names []string
	for _, a := range e.node.Attr {
		switch a.Key {
		case AttrShadowRoot, AttrCapturedIframe, AttrBoundingBox:
			continue
		}
		names = append(names, a.Key)
	}
	return names
}

// Classes returns the element's class list.
func (e *Element) Classes() []string {
	cls, _ := e.Attr("class")
	return strings.Fields(cls)
}

// IsShadowContainer reports whether this element is a flattened shadow-root
// wrapper rather than a real light-DOM element.
func (e *Element) IsShadowContainer() bool {
	_, ok := e.Attr(AttrShadowRoot)
	return ok
}

// IsIframeContainer reports whether this element is an inlined iframe
// document wrapper.
func (e *Element) IsIframeContainer() bool {
	_, ok := e.Attr(AttrCapturedIframe)
	return ok
}

// Children returns the element's light-DOM element children. Flattened
// shadow-root containers are not children; they are reachable only through
// ShadowRoot.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		child := e.snap.wrap(c)
		if child.IsShadowContainer() {
			continue
		}
		out = append(out, child)
	}
	return out
}

// ShadowRoot returns the element's flattened shadow-root container, or nil.
func (e *Element) ShadowRoot() *Element {
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		child := e.snap.wrap(c)
		if child.IsShadowContainer() {
			return child
		}
	}
	return nil
}

// Parent returns the parent element, or nil at the tree root.
func (e *Element) Parent() *Element {
	p := e.node.Parent
	for p != nil && p.Type != html.ElementNode {
		p = p.Parent
	}
	if p == nil {
		return nil
	}
	return e.snap.wrap(p)
}

// Contains reports whether other is inside e's subtree (strictly; an element
// does not contain itself).
func (e *Element) Contains(other *Element) bool {
	if other == nil || e.node == other.node {
		return false
	}
	for p := other.node.Parent; p != nil; p = p.Parent {
		if p == e.node {
			return true
		}
	}
	return false
}

// Same reports element identity.
func (e *Element) Same(other *Element) bool {
	return other != nil && e.node == other.node
}

// Depth is the number of element ancestors above e.
func (e *Element) Depth() int {
	d := 0
	for p := e.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}

// DocumentOrder returns the element's pre-order index in the snapshot.
func (e *Element) DocumentOrder() int {
	return e.snap.order[e.node]
}

// Text returns the element's visible text with whitespace collapsed,
// the way goquery flattens a subtree's text nodes.
func (e *Element) Text() string {
	sel := goquery.NewDocumentFromNode(e.node).Selection
	return collapseSpace(sel.Text())
}

// ShadowText returns the text of the element's shadow subtree, empty when
// the element hosts no shadow root. Extraction prefers this over light-DOM
// text for custom elements whose content lives behind the boundary.
func (e *Element) ShadowText() string {
	sr := e.ShadowRoot()
	if sr == nil {
		return ""
	}
	return sr.Text()
}

// BoundingBox returns the recorder-annotated position when present. The
// second return is false for synthetic positions derived from document order.
func (e *Element) BoundingBox() (models.Position, bool) {
	raw, ok := e.Attr(AttrBoundingBox)
	if ok {
		parts := strings.Split(raw, ",")
		if len(parts) >= 2 {
			x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if errX == nil && errY == nil {
				return models.Position{X: x, Y: y}, true
			}
		}
	}
	// Synthetic fallback keeps spatial sorting meaningful for snapshots
	// captured without layout data: document order maps to rows.
	return models.Position{X: 0, Y: float64(e.DocumentOrder())}, false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
