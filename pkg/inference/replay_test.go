package inference

import (
	"testing"

	"github.com/getmaxun/maxun-sub002/pkg/models"
)

func TestReplayFields(t *testing.T) {
	snap := mustSnapWithBase(t, `<html><body><ul>
<li class="item"><a href="/p/1">First Product</a></li>
<li class="item"><a href="/p/2">Second Product</a></li>
<li class="item"><a href="/p/3">Third Product</a></li>
</ul></body></html>`, "https://shop.example")

	list := &models.ListDescriptor{
		ListSelector: `//ul/li[contains(@class, "item")]`,
		SampleSize:   3,
	}
	fields := models.FieldSet{
		"Label 1": {
			SelectorObj: models.SelectorObj{
				Selector:  list.ListSelector + `/a`,
				Tag:       "a",
				Attribute: models.AttrInnerText,
			},
		},
		"Label 2": {
			SelectorObj: models.SelectorObj{
				Selector:  list.ListSelector + `/a`,
				Tag:       "a",
				Attribute: models.AttrHref,
			},
		},
	}

	rows := ReplayFields(snap, list, fields, "https://shop.example/list")
	if len(rows) != 3 {
		t.Fatalf("row count = %d, want 3", len(rows))
	}

	wantTitles := []string{"First Product", "Second Product", "Third Product"}
	for i, row := range rows {
		if row.Ordinal != i {
			t.Errorf("row %d ordinal = %d", i, row.Ordinal)
		}
		if row.Values["Label 1"] != wantTitles[i] {
			t.Errorf("row %d title = %q, want %q", i, row.Values["Label 1"], wantTitles[i])
		}
		if row.Values["Label 2"] == "" || row.Values["Label 2"][0] == '/' {
			t.Errorf("row %d link = %q, want absolute URL", i, row.Values["Label 2"])
		}
		if row.PageURL != "https://shop.example/list" {
			t.Errorf("row %d page url = %q", i, row.PageURL)
		}
	}
}

func TestReplayFieldsSkipsEmptyInstances(t *testing.T) {
	snap := mustSnapWithBase(t, `<html><body><ul>
<li class="item"><a href="/p/1">Has content</a></li>
<li class="item"></li>
</ul></body></html>`, "https://shop.example")

	list := &models.ListDescriptor{ListSelector: `//ul/li[contains(@class, "item")]`}
	fields := models.FieldSet{
		"Label 1": {
			SelectorObj: models.SelectorObj{
				Selector:  list.ListSelector + `/a`,
				Tag:       "a",
				Attribute: models.AttrInnerText,
			},
		},
	}

	rows := ReplayFields(snap, list, fields, "")
	if len(rows) != 1 {
		t.Fatalf("row count = %d, want empty instance skipped", len(rows))
	}
}

func TestSuggestName(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		attribute string
		want      string
	}{
		{name: "Href binding", data: "https://x.example", attribute: models.AttrHref, want: "link"},
		{name: "Src binding", data: "/img/x.png", attribute: models.AttrSrc, want: "image"},
		{name: "Alt binding", data: "A shoe", attribute: models.AttrAlt, want: "imageAlt"},
		{name: "Email value", data: "jane@corp.example", attribute: models.AttrInnerText, want: "email"},
		{name: "Price value", data: "$19.99", attribute: models.AttrInnerText, want: "price"},
		{name: "Numeric value", data: "1234", attribute: models.AttrInnerText, want: "number"},
		{name: "Free text camel cased", data: "Great Red Shoes", attribute: models.AttrInnerText, want: "greatRedShoes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestName(tt.data, tt.attribute); got != tt.want {
				t.Errorf("SuggestName(%q, %q) = %q, want %q", tt.data, tt.attribute, got, tt.want)
			}
		})
	}
}
