package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// WriteText writes contents to path as UTF-8, creating parent directories.
func WriteText(t testing.TB, path, contents string) {
	t.Helper()
	writeBytes(t, path, []byte(contents))
}

// WriteWindows1250 writes contents to path encoded as Windows-1250, the code
// page the ERP exports use on the office machines.
func WriteWindows1250(t testing.TB, path, contents string) {
	t.Helper()
	encoded, err := charmap.Windows1250.NewEncoder().String(contents)
	if err != nil {
		t.Fatalf("encode %s as windows-1250: %v", path, err)
	}
	writeBytes(t, path, []byte(encoded))
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
