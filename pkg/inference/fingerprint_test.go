package inference

import (
	"testing"

	"github.com/getmaxun/maxun-sub002/pkg/dom"
	"github.com/getmaxun/maxun-sub002/pkg/selector"
)

func mustSnap(t *testing.T, html string) *dom.Snapshot {
	t.Helper()
	snap, err := dom.Parse(html, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return snap
}

func firstMatch(t *testing.T, snap *dom.Snapshot, path string) *dom.Element {
	t.Helper()
	el := selector.EvaluateFirst(snap, path, false)
	if el == nil {
		t.Fatalf("no element for %q", path)
	}
	return el
}

func TestDetectGroupOnRepeatingSiblings(t *testing.T) {
	snap := mustSnap(t, `<html><body>
<ul>
  <li class="item"><a href="/1">One</a></li>
  <li class="item"><a href="/2">Two</a></li>
  <li class="item"><a href="/3">Three</a></li>
</ul>
</body></html>`)

	got := DetectGroup(firstMatch(t, snap, `//ul/li[1]`))
	if !got.IsGroup {
		t.Fatal("repeating siblings not detected as group")
	}
	if len(got.Members) != 3 {
		t.Errorf("member count = %d, want 3", len(got.Members))
	}
}

func TestDetectGroupClimbsFromLeaf(t *testing.T) {
	snap := mustSnap(t, `<html><body>
<ul>
  <li class="item"><div class="meta"><a href="/1">One</a></div></li>
  <li class="item"><div class="meta"><a href="/2">Two</a></div></li>
</ul>
</body></html>`)

	// Hovering the deep anchor should classify the enclosing list item, not
	// the anchor itself.
	got := DetectGroup(firstMatch(t, snap, `//ul/li[1]//a`))
	if !got.IsGroup {
		t.Fatal("group not found by climbing from leaf")
	}
	if len(got.Members) != 2 || got.Members[0].Tag() != "li" {
		t.Errorf("members = %d of tag %q, want 2 li", len(got.Members), got.Members[0].Tag())
	}
}

func TestDetectGroupSingleton(t *testing.T) {
	snap := mustSnap(t, `<html><body>
<article class="hero"><h1>Only one</h1></article>
</body></html>`)

	got := DetectGroup(firstMatch(t, snap, `//article`))
	if got.IsGroup {
		t.Fatal("lone element misclassified as group")
	}
	if len(got.Members) != 1 {
		t.Errorf("singleton members = %d, want 1", len(got.Members))
	}
}

func TestFingerprintToleratesChildCountJitter(t *testing.T) {
	// One item has an extra optional child; the bucketed child-count class
	// keeps the two items in the same group.
	snap := mustSnap(t, `<html><body>
<ul>
  <li class="item"><span>a</span></li>
  <li class="item"><span>b</span><em>sale</em></li>
</ul>
</body></html>`)

	got := DetectGroup(firstMatch(t, snap, `//ul/li[1]`))
	if !got.IsGroup || len(got.Members) != 2 {
		t.Fatalf("jittered items split apart: group=%v members=%d", got.IsGroup, len(got.Members))
	}
}

func TestFingerprintSeparatesDifferentShapes(t *testing.T) {
	snap := mustSnap(t, `<html><body>
<div>
  <section class="list-block"><p>text</p></section>
  <section class="ad-block" data-ad="1"><p>ad</p></section>
  <section class="list-block"><p>more</p></section>
</div>
</body></html>`)

	got := DetectGroup(firstMatch(t, snap, `//section[1]`))
	if !got.IsGroup {
		t.Fatal("repeated sections not grouped")
	}
	if len(got.Members) != 2 {
		t.Errorf("members = %d, want 2 (ad block excluded)", len(got.Members))
	}
}
