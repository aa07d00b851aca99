package kramdown

import (
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
)

// Metadata is the optional YAML front matter of an exported document.
type Metadata struct {
	Title   string         `yaml:"title"`
	Date    string         `yaml:"date"`
	LastMod string         `yaml:"lastmod"`
	Updated string         `yaml:"updated"`
	Tags    []string       `yaml:"tags"`
	Extra   map[string]any `yaml:",inline"`
}

// ParseMetadata reads the leading front matter of native. Content without
// front matter yields an empty Metadata.
func ParseMetadata(native string) (Metadata, error) {
	var meta Metadata
	trimmed := strings.TrimLeft(native, "\n")
	if !strings.HasPrefix(trimmed, "---") {
		return meta, nil
	}
	if _, err := frontmatter.Parse(strings.NewReader(trimmed), &meta); err != nil {
		return Metadata{}, fmt.Errorf("kramdown: parse front matter: %w", err)
	}
	meta.Title = strings.TrimSpace(meta.Title)
	return meta, nil
}
