package cryptoutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBlake2bDeterministic(t *testing.T) {
	h, err := NewHasher(BLAKE2b256)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	a, _ := h.Hash([]byte("walkthrough"))
	b, _ := h.Hash([]byte("walkthrough"))
	if a != b {
		t.Errorf("expected identical digests, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 32-byte hex digest, got %d chars", len(a))
	}

	c, _ := h.Hash([]byte("walkthrough!"))
	if a == c {
		t.Errorf("different input produced the same digest")
	}
}

func TestNewHasherUnsupported(t *testing.T) {
	if _, err := NewHasher("md4"); err == nil {
		t.Errorf("expected error for unsupported algorithm")
	}
}

func TestDigestTree(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sections"), 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(root, "user-guide.md"), []byte("# Guide\n"), 0644)
	os.WriteFile(filepath.Join(root, "sections", "setup.md"), []byte("## Setup\n"), 0644)

	digests, err := DigestTree(root)
	if err != nil {
		t.Fatalf("DigestTree failed: %v", err)
	}
	if len(digests) != 2 {
		t.Fatalf("expected 2 digests, got %d", len(digests))
	}
	if _, ok := digests["sections/setup.md"]; !ok {
		t.Errorf("expected slash-separated key for nested file, got %v", digests)
	}

	missing, err := DigestTree(filepath.Join(root, "nope"))
	if err != nil || len(missing) != 0 {
		t.Errorf("expected empty map for missing root, got %v, %v", missing, err)
	}
}
