package selector

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "Strips single ordinal",
			path: `//html/body/ul/li[3]`,
			want: `//html/body/ul/li`,
		},
		{
			name: "Strips every ordinal along the path",
			path: `//div[2]/ul[1]/li[7]/a[1]`,
			want: `//div/ul/li/a`,
		},
		{
			name: "Keeps attribute predicates",
			path: `//div[@id="main"]/ul/li[3]`,
			want: `//div[@id="main"]/ul/li`,
		},
		{
			name: "Mixed segment loses only the numeric part",
			path: `//li[3][contains(@class, "item")]`,
			want: `//li[contains(@class, "item")]`,
		},
		{
			name: "Already generalized path unchanged",
			path: `//ul/li[contains(@class, "item")]/a`,
			want: `//ul/li[contains(@class, "item")]/a`,
		},
		{
			name: "Shadow crossing survives",
			path: `//div[@id="host"] >> //li[2]/span`,
			want: `//div[@id="host"] >> //li/span`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.path)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.path, got, tt.want)
			}
			// Normalizing again must be a no-op.
			if again := Normalize(got); again != got {
				t.Errorf("Normalize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestIsGeneralized(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "Pinned ordinal", path: `//ul/li[2]`, want: false},
		{name: "Class predicate only", path: `//ul/li[contains(@class, "item")]`, want: true},
		{name: "Bare tags", path: `//ul/li/a`, want: true},
		{name: "Ordinal behind class predicate", path: `//li[contains(@class, "item")][4]`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGeneralized(tt.path); got != tt.want {
				t.Errorf("IsGeneralized(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
