package selector

import (
	"testing"

	"github.com/getmaxun/maxun-sub002/pkg/dom"
)

func mustSnap(t *testing.T, html string) *dom.Snapshot {
	t.Helper()
	snap, err := dom.Parse(html, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return snap
}

const listHTML = `<html><body>
<ul>
  <li class="item"><a href="/p/1">First Product</a></li>
  <li class="item"><a href="/p/2">Second Product</a></li>
  <li class="item"><a href="/p/3">Third Product</a></li>
</ul>
</body></html>`

func TestEvaluateAllDocumentPaths(t *testing.T) {
	snap := mustSnap(t, listHTML)

	tests := []struct {
		name      string
		path      string
		wantCount int
		wantTag   string
	}{
		{
			name:      "Bare tag chain",
			path:      `//html/body/ul/li`,
			wantCount: 3,
			wantTag:   "li",
		},
		{
			name:      "Class contains predicate",
			path:      `//ul/li[contains(@class, "item")]`,
			wantCount: 3,
			wantTag:   "li",
		},
		{
			name:      "Pinned ordinal",
			path:      `//ul/li[2]`,
			wantCount: 1,
			wantTag:   "li",
		},
		{
			name:      "Child anchors",
			path:      `//ul/li[contains(@class, "item")]/a`,
			wantCount: 3,
			wantTag:   "a",
		},
		{
			name:      "No match",
			path:      `//ul/li[contains(@class, "missing")]`,
			wantCount: 0,
		},
		{
			name:      "Malformed path degrades to empty",
			path:      `//ul/li[unclosed`,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAll(snap, tt.path, false)
			if len(got) != tt.wantCount {
				t.Fatalf("EvaluateAll(%q) matched %d elements, want %d", tt.path, len(got), tt.wantCount)
			}
			for _, el := range got {
				if el.Tag() != tt.wantTag {
					t.Errorf("matched tag %q, want %q", el.Tag(), tt.wantTag)
				}
			}
		})
	}
}

func TestEvaluateAllShadowCrossing(t *testing.T) {
	snap := mustSnap(t, `<html><body>
<div id="host">
  <div data-shadow-root="true">
    <p class="inner">Hello shadow</p>
    <p class="inner">Second shadow</p>
  </div>
</div>
</body></html>`)

	got := EvaluateAll(snap, `//div[@id="host"] >> //p`, true)
	if len(got) != 2 {
		t.Fatalf("shadow crossing matched %d elements, want 2", len(got))
	}
	if got[0].Text() != "Hello shadow" {
		t.Errorf("first match text = %q, want %q", got[0].Text(), "Hello shadow")
	}

	// Ordinal resolves over the aggregated matched set behind the boundary.
	second := EvaluateAll(snap, `//div[@id="host"] >> //p[2]`, true)
	if len(second) != 1 || second[0].Text() != "Second shadow" {
		t.Fatalf("ordinal behind shadow boundary resolved wrong: %d matches", len(second))
	}
}

func TestEvaluateAllShadowHintWithoutToken(t *testing.T) {
	// Nested shadow content addressed without explicit crossing syntax: the
	// document-level evaluation finds nothing for a child chain that skips
	// the container, and the hinted manual walk traverses the boundary.
	snap := mustSnap(t, `<html><body>
<section>
  <widget-card>
    <div data-shadow-root="true">
      <span class="price">19.99</span>
    </div>
  </widget-card>
</section>
</body></html>`)

	got := EvaluateAll(snap, `//section/widget-card/span[contains(@class, "price")]`, true)
	if len(got) != 1 {
		t.Fatalf("hinted walk matched %d elements, want 1", len(got))
	}
	if got[0].Text() != "19.99" {
		t.Errorf("matched text = %q, want %q", got[0].Text(), "19.99")
	}

	// Without the hint the same path finds nothing: the container div sits
	// between widget-card and span in the flattened tree.
	if got := EvaluateAll(snap, `//section/widget-card/span[contains(@class, "price")]`, false); len(got) != 0 {
		t.Errorf("unhinted evaluation matched %d elements, want 0", len(got))
	}
}

func TestEvaluateAllIframeCrossing(t *testing.T) {
	snap := mustSnap(t, `<html><body>
<main>
  <iframe src="https://ads.example"></iframe>
  <div data-captured-iframe="true">
    <span class="inside">Framed content</span>
  </div>
</main>
</body></html>`)

	got := EvaluateAll(snap, `//main :>> //span[contains(@class, "inside")]`, false)
	if len(got) != 1 {
		t.Fatalf("iframe crossing matched %d elements, want 1", len(got))
	}
	if got[0].Text() != "Framed content" {
		t.Errorf("matched text = %q, want %q", got[0].Text(), "Framed content")
	}
}

func TestEvaluateWithin(t *testing.T) {
	snap := mustSnap(t, `<html><body>
<ul>
  <li class="item"><div class="meta"><a href="/p/1">One</a></div></li>
  <li class="item"><div class="meta"><a href="/p/2">Two</a></div></li>
</ul>
</body></html>`)

	items := EvaluateAll(snap, `//ul/li[contains(@class, "item")]`, false)
	if len(items) != 2 {
		t.Fatalf("want 2 list items, got %d", len(items))
	}

	tests := []struct {
		name      string
		rel       string
		wantCount int
	}{
		{name: "Child chain", rel: `div[contains(@class, "meta")]/a`, wantCount: 1},
		{name: "Descendant search", rel: `//a`, wantCount: 1},
		{name: "Missing child", rel: `span`, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateWithin(items[0], tt.rel)
			if len(got) != tt.wantCount {
				t.Errorf("EvaluateWithin(%q) matched %d, want %d", tt.rel, len(got), tt.wantCount)
			}
		})
	}
}

func TestPathForRoundTrip(t *testing.T) {
	snap := mustSnap(t, listHTML)

	items := EvaluateAll(snap, `//ul/li`, false)
	if len(items) != 3 {
		t.Fatalf("want 3 items, got %d", len(items))
	}

	// The concrete path of the second item must resolve back to exactly
	// that item; its normalized form must match all three siblings.
	concrete := PathFor(items[1])
	back := EvaluateAll(snap, concrete, false)
	if len(back) != 1 || !back[0].Same(items[1]) {
		t.Fatalf("concrete path %q resolved to %d elements", concrete, len(back))
	}

	general := Normalize(concrete)
	if !IsGeneralized(general) {
		t.Fatalf("normalized path %q still carries ordinals", general)
	}
	all := EvaluateAll(snap, general, false)
	if len(all) != 3 {
		t.Fatalf("generalized path %q matched %d elements, want 3", general, len(all))
	}
}

func TestPathForShadowContentRoundTrip(t *testing.T) {
	snap := mustSnap(t, `<html><body>
<div id="host">
  <div data-shadow-root="true">
    <p class="inner">Hello shadow</p>
    <p class="inner">Second shadow</p>
  </div>
</div>
</body></html>`)

	matches := EvaluateAll(snap, `//div[@id="host"] >> //p`, true)
	if len(matches) != 2 {
		t.Fatalf("want 2 shadow paragraphs, got %d", len(matches))
	}

	path := PathFor(matches[0])
	if !HasShadowCross(path) {
		t.Fatalf("path %q lost the shadow crossing", path)
	}

	back := EvaluateAll(snap, path, true)
	if len(back) != 1 || !back[0].Same(matches[0]) {
		t.Fatalf("path %q resolved to %d elements, want the original", path, len(back))
	}
}

func TestRelativeTo(t *testing.T) {
	base := `//ul/li[contains(@class, "item")]`
	full := base + `/div/a`

	rel, ok := RelativeTo(full, base)
	if !ok || rel != "div/a" {
		t.Fatalf("RelativeTo = %q, %v; want %q, true", rel, ok, "div/a")
	}

	if _, ok := RelativeTo(`//other/path`, base); ok {
		t.Error("RelativeTo matched unrelated base")
	}
}
