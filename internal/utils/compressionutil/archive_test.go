package compression

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string) {
	t.Helper()
	files := map[string]string{
		"user-guide.md":             "# Guide\n",
		"sections/setup.md":         "## Setup\n",
		"screenshots/setup_open.png": "not really a png",
	}
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	for _, format := range []string{FormatXZ, FormatBZIP2} {
		t.Run(format, func(t *testing.T) {
			src := filepath.Join(t.TempDir(), "published")
			writeTree(t, src)

			ext, err := Extension(format)
			if err != nil {
				t.Fatalf("Extension failed: %v", err)
			}
			archive := filepath.Join(t.TempDir(), "wallet"+ext)
			if err := ArchiveDir(src, archive, format); err != nil {
				t.Fatalf("ArchiveDir failed: %v", err)
			}

			detected, err := DetectArchiveFormat(archive)
			if err != nil || detected != format {
				t.Fatalf("DetectArchiveFormat = %q, %v; want %q", detected, err, format)
			}

			out := t.TempDir()
			if err := ExtractArchive(archive, out); err != nil {
				t.Fatalf("ExtractArchive failed: %v", err)
			}
			got, err := os.ReadFile(filepath.Join(out, "sections", "setup.md"))
			if err != nil {
				t.Fatalf("expected extracted section file: %v", err)
			}
			if string(got) != "## Setup\n" {
				t.Errorf("unexpected content %q", got)
			}
		})
	}
}

func TestArchiveUnsupportedFormat(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out.tar.zst")
	if err := ArchiveDir(src, dst, "zstd"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("expected partial archive to be removed")
	}
}
