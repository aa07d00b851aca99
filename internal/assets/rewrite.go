package assets

import (
	"slices"
	"strings"
)

// Rewrite replaces every occurrence of each key of replacements in content
// with its value. Longer paths win when one path is a prefix or suffix of
// another.
func Rewrite(content string, replacements map[string]string) string {
	if len(replacements) == 0 || content == "" {
		return content
	}
	olds := make([]string, 0, len(replacements))
	for old, replacement := range replacements {
		if old != "" && replacement != "" {
			olds = append(olds, old)
		}
	}
	slices.SortFunc(olds, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	pairs := make([]string, 0, len(olds)*2)
	for _, old := range olds {
		pairs = append(pairs, old, replacements[old])
	}
	return strings.NewReplacer(pairs...).Replace(content)
}
