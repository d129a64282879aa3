package dom

import (
	"testing"
)

func mustParse(t *testing.T, html, base string) *Snapshot {
	t.Helper()
	snap, err := Parse(html, base)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return snap
}

func TestChildrenSkipShadowContainers(t *testing.T) {
	snap := mustParse(t, `<html><body>
<div id="host">
  <span>light</span>
  <div data-shadow-root="true"><p>shadow</p></div>
</div>
</body></html>`, "")

	host := snap.FindCSS("#host")
	if len(host) != 1 {
		t.Fatalf("want 1 host element, got %d", len(host))
	}

	children := host[0].Children()
	if len(children) != 1 || children[0].Tag() != "span" {
		t.Fatalf("light children = %d, want the single span", len(children))
	}

	sr := host[0].ShadowRoot()
	if sr == nil {
		t.Fatal("host shadow root not found")
	}
	if got := sr.Children(); len(got) != 1 || got[0].Tag() != "p" {
		t.Fatalf("shadow children = %d, want the single p", len(got))
	}

	if got := host[0].ShadowText(); got != "shadow" {
		t.Errorf("ShadowText = %q, want %q", got, "shadow")
	}
}

func TestBoundingBox(t *testing.T) {
	snap := mustParse(t, `<html><body>
<div id="a" data-mx-bbox="10,240,300,40">annotated</div>
<div id="b">plain</div>
</body></html>`, "")

	a := snap.FindCSS("#a")[0]
	pos, annotated := a.BoundingBox()
	if !annotated {
		t.Fatal("annotated element reported synthetic position")
	}
	if pos.X != 10 || pos.Y != 240 {
		t.Errorf("annotated position = %+v, want 10,240", pos)
	}

	b := snap.FindCSS("#b")[0]
	pos, annotated = b.BoundingBox()
	if annotated {
		t.Fatal("plain element reported annotated position")
	}
	// Synthetic position follows document order, so b sorts after earlier
	// elements even without layout data.
	if pos.X != 0 || pos.Y <= 0 {
		t.Errorf("synthetic position = %+v, want x=0 and positive document-order y", pos)
	}
}

func TestAttrNamesExcludeBookkeeping(t *testing.T) {
	snap := mustParse(t, `<html><body>
<div id="x" class="card" data-mx-bbox="1,2,3,4" data-shadow-root="true"></div>
</body></html>`, "")

	el := snap.FindCSS("#x")[0]
	names := el.AttrNames()
	for _, n := range names {
		if n == AttrBoundingBox || n == AttrShadowRoot || n == AttrCapturedIframe {
			t.Errorf("bookkeeping attribute %q leaked into AttrNames", n)
		}
	}
	if len(names) != 2 {
		t.Errorf("AttrNames = %v, want id and class only", names)
	}
}

func TestResolveURL(t *testing.T) {
	snap := mustParse(t, `<html><body></body></html>`, "https://shop.example/list/page1")

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "Absolute unchanged", raw: "https://other.example/x", want: "https://other.example/x"},
		{name: "Root relative", raw: "/p/42", want: "https://shop.example/p/42"},
		{name: "Document relative", raw: "page2", want: "https://shop.example/list/page2"},
		{name: "Empty stays empty", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snap.ResolveURL(tt.raw); got != tt.want {
				t.Errorf("ResolveURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestContainsAndDepth(t *testing.T) {
	snap := mustParse(t, `<html><body>
<div id="outer"><div id="inner"><a id="leaf" href="#">x</a></div></div>
</body></html>`, "")

	outer := snap.FindCSS("#outer")[0]
	inner := snap.FindCSS("#inner")[0]
	leaf := snap.FindCSS("#leaf")[0]

	if !outer.Contains(inner) || !outer.Contains(leaf) {
		t.Error("outer should contain inner and leaf")
	}
	if inner.Contains(outer) {
		t.Error("containment must not be symmetric")
	}
	if outer.Contains(outer) {
		t.Error("containment must be strict")
	}
	if leaf.Depth() <= inner.Depth() || inner.Depth() <= outer.Depth() {
		t.Errorf("depths not increasing: outer=%d inner=%d leaf=%d",
			outer.Depth(), inner.Depth(), leaf.Depth())
	}
}
