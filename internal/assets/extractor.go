package assets

import (
	"bytes"
	"regexp"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// DefaultPrefixes is the attachment layout used by the SiYuan kernel.
var DefaultPrefixes = []string{"assets/", "/assets/"}

var remoteSchemes = []string{"http://", "https://", "data:"}

var (
	// bareDestination matches link and image targets that CommonMark rejects,
	// such as unbracketed paths with spaces, which SiYuan still writes.
	bareDestination = regexp.MustCompile(`!?\[[^\]]*\]\(([^)<>]+)\)`)
	trailingTitle   = regexp.MustCompile(`\s+("[^"]*"|'[^']*')$`)
)

// Extractor finds locally stored assets referenced from Markdown.
type Extractor struct {
	prefixes []string
	md       goldmark.Markdown
}

// NewExtractor returns an Extractor matching paths under prefixes. No
// prefixes selects DefaultPrefixes.
func NewExtractor(prefixes ...string) *Extractor {
	cleaned := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		cleaned = slices.Clone(DefaultPrefixes)
	}
	return &Extractor{
		prefixes: cleaned,
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Extract returns the distinct local asset paths referenced by Markdown
// images, Markdown links and HTML img tags, sorted.
func (e *Extractor) Extract(markdown string) []string {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}
	source := []byte(markdown)
	doc := e.md.Parser().Parse(text.NewReader(source))

	found := map[string]struct{}{}
	add := func(dest string) {
		if e.IsLocal(dest) {
			found[dest] = struct{}{}
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Image:
			add(string(node.Destination))
		case *ast.Link:
			add(string(node.Destination))
		case *ast.RawHTML:
			var buf bytes.Buffer
			for i := 0; i < node.Segments.Len(); i++ {
				segment := node.Segments.At(i)
				buf.Write(segment.Value(source))
			}
			imageSources(buf.Bytes(), add)
		case *ast.HTMLBlock:
			var buf bytes.Buffer
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				buf.Write(segment.Value(source))
			}
			if node.HasClosure() {
				buf.Write(node.ClosureLine.Value(source))
			}
			imageSources(buf.Bytes(), add)
		}
		return ast.WalkContinue, nil
	})

	for _, dest := range spacedDestinations(markdown) {
		add(dest)
	}

	if len(found) == 0 {
		return nil
	}
	paths := make([]string, 0, len(found))
	for path := range found {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

// IsLocal reports whether path points into the local asset store.
func (e *Extractor) IsLocal(path string) bool {
	path = strings.TrimSpace(path)
	if path == "" {
		return false
	}
	lower := strings.ToLower(path)
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	for _, prefix := range e.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func imageSources(fragment []byte, visit func(string)) {
	tokenizer := html.NewTokenizer(bytes.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if string(name) != "img" {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = tokenizer.TagAttr()
				if string(key) == "src" {
					visit(string(val))
				}
			}
		}
	}
}

// spacedDestinations returns targets containing whitespace, with any quoted
// title removed. Targets without whitespace are left to the parser.
func spacedDestinations(markdown string) []string {
	var out []string
	for _, match := range bareDestination.FindAllStringSubmatch(markdown, -1) {
		dest := strings.TrimSpace(trailingTitle.ReplaceAllString(match[1], ""))
		if strings.ContainsAny(dest, " \t") {
			out = append(out, dest)
		}
	}
	return out
}
