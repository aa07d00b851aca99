package kramdown

import "regexp"

// blockIDPattern matches SiYuan block ids: a 14+ digit timestamp, a dash and
// at least seven lowercase alphanumerics.
const blockIDPattern = `[0-9]{14,}-[0-9a-z]{7,}`

var (
	blockID        = regexp.MustCompile(`^` + blockIDPattern + `$`)
	referenceToken = regexp.MustCompile(`\(\((` + blockIDPattern + `)(?:\s+["']([^"']+)["'])?\)\)`)
)

// Reference is a block reference token found in native content.
type Reference struct {
	BlockID string
	Label   string
}

// IsBlockID reports whether id is a well formed block id.
func IsBlockID(id string) bool {
	return blockID.MatchString(id)
}

// ExtractReferences returns every block reference token in native, in
// document order. Repeated ids are kept so each occurrence is counted.
func ExtractReferences(native string) []Reference {
	matches := referenceToken.FindAllStringSubmatch(native, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]Reference, 0, len(matches))
	for _, match := range matches {
		refs = append(refs, Reference{BlockID: match[1], Label: match[2]})
	}
	return refs
}
