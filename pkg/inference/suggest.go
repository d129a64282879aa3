package inference

import (
	"regexp"
	"strings"

	"github.com/getmaxun/maxun-sub002/pkg/models"
)

var (
	reNumber = regexp.MustCompile(`^\d+([.,]\d+)?$`)
	rePrice  = regexp.MustCompile(`^[$€£¥]\s?\d|^\d+([.,]\d{2})\s?[$€£¥]`)
	reWord   = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// SuggestName proposes a human-friendly semantic name for a field from its
// attribute binding and value. Canonical labels stay "Label N"; this only
// rides along as a hint for the labeling UI.
func SuggestName(data, attribute string) string {
	switch attribute {
	case models.AttrHref:
		return "link"
	case models.AttrSrc:
		return "image"
	case models.AttrAlt:
		return "imageAlt"
	}

	value := strings.TrimSpace(data)
	switch {
	case value == "":
		return ""
	case strings.Contains(value, "@") && strings.Contains(value, "."):
		return "email"
	case strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://"):
		return "url"
	case rePrice.MatchString(value):
		return "price"
	case reNumber.MatchString(value):
		return "number"
	}
	return toCamelCase(value)
}

// toCamelCase squeezes the first words of a value into a camelCase
// identifier, capped at 30 characters.
func toCamelCase(s string) string {
	s = reWord.ReplaceAllString(s, " ")
	words := strings.Fields(s)
	if len(words) == 0 {
		return "text"
	}
	if len(words) > 4 {
		words = words[:4]
	}
	for i := range words {
		if i == 0 {
			words[i] = strings.ToLower(words[i])
		} else {
			words[i] = strings.Title(strings.ToLower(words[i]))
		}
	}
	out := strings.Join(words, "")
	if len(out) > 30 {
		out = out[:30]
	}
	return out
}
