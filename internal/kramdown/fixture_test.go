package kramdown

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-docshare/pkg/testsupport"
)

func TestTransformDocumentFixture(t *testing.T) {
	native := testsupport.LoadFixture(t, filepath.Join("testdata", "release_notes.kramdown"))
	want := strings.TrimRight(testsupport.LoadFixture(t, filepath.Join("testdata", "release_notes.md")), "\n")

	if got := Transform(native); got != want {
		t.Fatalf("Transform mismatch\nwant: %q\ngot:  %q", want, got)
	}

	meta, err := ParseMetadata(native)
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if meta.Title != "Release notes" {
		t.Fatalf("expected front matter title, got %q", meta.Title)
	}

	var wantRefs []Reference
	testsupport.LoadGolden(t, filepath.Join("testdata", "release_notes.refs.json"), &wantRefs)
	refs := ExtractReferences(native)
	if len(refs) != len(wantRefs) {
		t.Fatalf("expected %d references, got %+v", len(wantRefs), refs)
	}
	for i := range refs {
		if refs[i] != wantRefs[i] {
			t.Fatalf("reference %d: want %+v got %+v", i, wantRefs[i], refs[i])
		}
	}
}
