package inference

import (
	"strings"
	"testing"
)

// tenItemList has a title in all ten instances, a badge in two, and a
// one-off element that only the first instance carries.
func tenItemList() string {
	var b strings.Builder
	b.WriteString(`<html><body><ul>`)
	for i := 1; i <= 10; i++ {
		b.WriteString(`<li class="item">`)
		b.WriteString(`<span class="title">Item `)
		b.WriteString(strings.Repeat("x", i))
		b.WriteString(`</span>`)
		if i <= 2 {
			b.WriteString(`<em class="badge">New</em>`)
		}
		if i == 1 {
			b.WriteString(`<i class="rare">Editor's pick</i>`)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func TestEnumerateAndValidate(t *testing.T) {
	snap := mustSnap(t, tenItemList())
	list := `//ul/li[contains(@class, "item")]`

	kept := EnumerateAndValidate(snap, list, false)

	want := map[string]bool{
		list + `/span[contains(@class, "title")]`: true,
		list + `/em[contains(@class, "badge")]`:   true,
	}
	dropped := list + `/i[contains(@class, "rare")]`

	got := make(map[string]bool, len(kept))
	for _, p := range kept {
		got[p] = true
	}

	for p := range want {
		if !got[p] {
			t.Errorf("pattern %q missing from validated set %v", p, kept)
		}
	}
	if got[dropped] {
		t.Errorf("pattern %q present in only one instance should have been dropped", dropped)
	}
}

func TestEnumerateAndValidateEmptyList(t *testing.T) {
	snap := mustSnap(t, `<html><body><p>no list here</p></body></html>`)

	if got := EnumerateAndValidate(snap, `//ul/li[contains(@class, "item")]`, false); got != nil {
		t.Errorf("want nil for unmatched list selector, got %v", got)
	}
}

func TestEnumerateAndValidateNestedPatterns(t *testing.T) {
	snap := mustSnap(t, `<html><body><ul>
<li class="row"><div class="meta"><a href="/1">One</a></div></li>
<li class="row"><div class="meta"><a href="/2">Two</a></div></li>
<li class="row"><div class="meta"><a href="/3">Three</a></div></li>
</ul></body></html>`)
	list := `//ul/li[contains(@class, "row")]`

	kept := EnumerateAndValidate(snap, list, false)

	wantNested := list + `/div[contains(@class, "meta")]/a`
	found := false
	for _, p := range kept {
		if p == wantNested {
			found = true
		}
	}
	if !found {
		t.Errorf("nested chain %q not in validated set %v", wantNested, kept)
	}
}
