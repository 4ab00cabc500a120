// Package testutil provides shared test helpers for writing temporary
// export fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteExport writes content into a temp file that is cleaned up with
// the test, returning its path.
func WriteExport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
