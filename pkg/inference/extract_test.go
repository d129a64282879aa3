package inference

import (
	"testing"

	"github.com/getmaxun/maxun-sub002/pkg/dom"
	"github.com/getmaxun/maxun-sub002/pkg/models"
	"github.com/getmaxun/maxun-sub002/pkg/selector"
)

func mustSnapWithBase(t *testing.T, html, base string) *dom.Snapshot {
	t.Helper()
	snap, err := dom.Parse(html, base)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return snap
}

func TestExtractAnchorYieldsTextAndLink(t *testing.T) {
	snap := mustSnapWithBase(t, `<html><body><ul>
<li class="item"><a href="/p/1">First Product</a></li>
<li class="item"><a href="/p/2">Second Product</a></li>
<li class="item"><a href="/p/3">Third Product</a></li>
</ul></body></html>`, "https://shop.example")
	list := `//ul/li[contains(@class, "item")]`

	cands := Extract(snap, list+`/a`, list, false)
	if len(cands) != 2 {
		t.Fatalf("anchor extraction produced %d candidates, want text and href", len(cands))
	}

	byAttr := map[string]Candidate{}
	for _, c := range cands {
		byAttr[c.SelectorObj.Attribute] = c
	}

	text, ok := byAttr[models.AttrInnerText]
	if !ok || text.Data != "First Product" {
		t.Errorf("text candidate = %+v, want First Product", text.FieldCandidate)
	}
	href, ok := byAttr[models.AttrHref]
	if !ok || href.Data != "https://shop.example/p/1" {
		t.Errorf("href candidate data = %q, want absolute URL", href.Data)
	}

	for _, c := range cands {
		if !selector.IsGeneralized(c.SelectorObj.Selector) {
			t.Errorf("candidate selector %q is not generalized", c.SelectorObj.Selector)
		}
	}
}

func TestExtractImageYieldsSrcAndAlt(t *testing.T) {
	snap := mustSnapWithBase(t, `<html><body><ul>
<li class="card"><img src="/img/1.png" alt="Red Shoe"></li>
<li class="card"><img src="/img/2.png" alt="Blue Shoe"></li>
</ul></body></html>`, "https://shop.example")
	list := `//ul/li[contains(@class, "card")]`

	cands := Extract(snap, list+`/img`, list, false)
	if len(cands) != 2 {
		t.Fatalf("image extraction produced %d candidates, want src and alt", len(cands))
	}

	byAttr := map[string]Candidate{}
	for _, c := range cands {
		byAttr[c.SelectorObj.Attribute] = c
	}

	if src := byAttr[models.AttrSrc]; src.Data != "https://shop.example/img/1.png" {
		t.Errorf("src candidate data = %q, want absolute URL", src.Data)
	}
	if alt := byAttr[models.AttrAlt]; alt.Data != "Red Shoe" {
		t.Errorf("alt candidate data = %q, want Red Shoe", alt.Data)
	}
}

func TestExtractGenericDescendsToLeafAndFindsEnclosingAnchor(t *testing.T) {
	snap := mustSnapWithBase(t, `<html><body><ul>
<li class="item"><a href="/p/1"><h3 class="name">Widget Alpha</h3></a></li>
<li class="item"><a href="/p/2"><h3 class="name">Widget Beta</h3></a></li>
</ul></body></html>`, "https://shop.example")
	list := `//ul/li[contains(@class, "item")]`

	cands := Extract(snap, list+`/a/h3[contains(@class, "name")]`, list, false)

	var gotText, gotHref bool
	for _, c := range cands {
		switch c.SelectorObj.Attribute {
		case models.AttrInnerText:
			gotText = true
			if c.Data != "Widget Alpha" {
				t.Errorf("text data = %q, want Widget Alpha", c.Data)
			}
		case models.AttrHref:
			gotHref = true
			if c.Data != "https://shop.example/p/1" {
				t.Errorf("enclosing anchor href = %q, want absolute URL", c.Data)
			}
			if c.SelectorObj.Tag != "a" {
				t.Errorf("href candidate tag = %q, want a", c.SelectorObj.Tag)
			}
		}
	}
	if !gotText || !gotHref {
		t.Fatalf("generic extraction missing candidates: text=%v href=%v", gotText, gotHref)
	}
}

func TestExtractSkipsInvalidValues(t *testing.T) {
	snap := mustSnapWithBase(t, `<html><body><ul>
<li class="item"><a href="#">!</a></li>
<li class="item"><a href="javascript:void(0)">?</a></li>
</ul></body></html>`, "")
	list := `//ul/li[contains(@class, "item")]`

	if cands := Extract(snap, list+`/a`, list, false); len(cands) != 0 {
		t.Errorf("placeholder anchors produced %d candidates, want 0", len(cands))
	}
}

func TestValidData(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "Normal text", in: "Hello world", want: true},
		{name: "Single character", in: "x", want: false},
		{name: "Whitespace only", in: "   \n\t ", want: false},
		{name: "Punctuation only", in: "-- !!", want: false},
		{name: "Number", in: "42", want: true},
		{name: "Padded", in: "  ok  ", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidData(tt.in); got != tt.want {
				t.Errorf("ValidData(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
