package testsupport

import (
	"encoding/json"
	"os"
	"testing"
)

// LoadFixture returns the contents of path, failing the test when it cannot
// be read.
func LoadFixture(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load fixture %s: %v", path, err)
	}
	return string(data)
}

// LoadGolden decodes the JSON golden file at path into v.
func LoadGolden(t testing.TB, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load golden %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode golden %s: %v", path, err)
	}
}
