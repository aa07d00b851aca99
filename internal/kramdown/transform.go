package kramdown

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-docshare/internal/logging"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

const (
	fullWidthSpace = "\u3000"
	refPlaceholder = "[ref]"
	embedPreview   = 50
)

var (
	bulletIAL  = regexp.MustCompile(`(?m)^([ \t]*[-*+][ \t]+)\{:[^}\n]*\}`)
	orderedIAL = regexp.MustCompile(`(?m)^([ \t]*\d+\.[ \t]+)\{:[^}\n]*\}`)
	inlineIAL  = regexp.MustCompile(`\{:[^}\n]*\}`)
	ialLine    = regexp.MustCompile(`(?m)^[ \t]*\{:[^}\n]*\}[ \t]*$`)
	blankLine  = regexp.MustCompile(`(?m)^[ \t\x{3000}]+$`)

	blockRefToken = regexp.MustCompile(`\(\((` + blockIDPattern + `)(?:\s+"([^"]+)")?\)\)`)
	embedQuery    = regexp.MustCompile(`(?s)\{\{.+?\}\}`)

	fullWidthRun = regexp.MustCompile(`\x{3000}+`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

var metadataPrefixes = []string{"title:", "date:", "lastmod:", "updated:"}

// Transformer converts kramdown to Markdown. The zero value is usable and
// discards embed-query diagnostics.
type Transformer struct {
	logger interfaces.Logger
}

// NewTransformer returns a Transformer that reports stripped embed queries to
// logger at debug level.
func NewTransformer(logger interfaces.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// Transform converts kramdown to Markdown using a Transformer without a
// logger.
func Transform(native string) string {
	return (&Transformer{}).Transform(native)
}

// Transform converts native kramdown into Markdown. It never fails; empty
// input yields empty output.
func (t *Transformer) Transform(native string) string {
	if native == "" {
		return ""
	}
	out := stripAttributes(native)
	out = convertBlockRefs(out)
	out = t.stripEmbedQueries(out)
	out = stripFrontMatter(out)
	out = normalizeFullWidth(out)
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func stripAttributes(s string) string {
	s = bulletIAL.ReplaceAllString(s, "$1")
	s = orderedIAL.ReplaceAllString(s, "$1")
	s = inlineIAL.ReplaceAllString(s, "")
	s = ialLine.ReplaceAllString(s, "")
	return blankLine.ReplaceAllString(s, "")
}

func convertBlockRefs(s string) string {
	return blockRefToken.ReplaceAllStringFunc(s, func(token string) string {
		match := blockRefToken.FindStringSubmatch(token)
		if len(match) > 2 && match[2] != "" {
			return "[" + match[2] + "]"
		}
		return refPlaceholder
	})
}

func (t *Transformer) stripEmbedQueries(s string) string {
	logger := logging.OrNoOp(t.logger)
	return embedQuery.ReplaceAllStringFunc(s, func(query string) string {
		logger.Debug("kramdown.embed_query.removed", "query", preview(query))
		return ""
	})
}

// stripFrontMatter drops a leading --- fenced block and metadata lines. The
// opening fence must be the first line, or the second when nothing has been
// kept before it.
func stripFrontMatter(s string) string {
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	inFrontMatter := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "---" {
			if inFrontMatter {
				inFrontMatter = false
				continue
			}
			if i == 0 || (i == 1 && len(kept) == 0) {
				inFrontMatter = true
				continue
			}
		}
		if inFrontMatter || isMetadataLine(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isMetadataLine(trimmed string) bool {
	for _, prefix := range metadataPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func normalizeFullWidth(s string) string {
	if !strings.Contains(s, fullWidthSpace) {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = normalizeFullWidthLine(line)
	}
	return strings.Join(lines, "\n")
}

func normalizeFullWidthLine(line string) string {
	rest := strings.TrimLeft(line, fullWidthSpace)
	if rest == "" {
		return ""
	}
	leading := utf8.RuneCountInString(line[:len(line)-len(rest)])
	rest = strings.TrimRight(rest, fullWidthSpace)
	rest = fullWidthRun.ReplaceAllString(rest, " ")
	return strings.Repeat(" ", leading) + rest
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= embedPreview {
		return s
	}
	runes := []rune(s)
	return string(runes[:embedPreview]) + "..."
}
