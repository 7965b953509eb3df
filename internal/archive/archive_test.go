package archive

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildAndExtractRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(src, []byte("hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewBuilder()
	mapping, err := b.AddMapping(dir, map[string]string{"hello.txt": "greeting.txt"})
	if err != nil {
		t.Fatalf("add mapping: %v", err)
	}
	blob, err := b.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	outRoot := filepath.Join(dir, "out")
	if err := Extract(blob, mapping, outRoot); err != nil {
		t.Fatalf("extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outRoot, "greeting.txt"))
	if err != nil {
		t.Fatalf("read extracted: %v", err)
	}
	if string(got) != "hi\n" {
		t.Errorf("got %q want %q", got, "hi\n")
	}
}

func TestMappingIdentifiersAreUnique(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	b := NewBuilder()
	mapping, err := b.AddMapping(dir, map[string]string{"a.txt": "a.txt", "b.txt": "b.txt"})
	if err != nil {
		t.Fatalf("add mapping: %v", err)
	}
	if len(mapping) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(mapping))
	}
	seen := map[string]bool{}
	for id := range mapping {
		if seen[id] {
			t.Errorf("duplicate identifier %q", id)
		}
		seen[id] = true
	}
}

func TestExtractMissingEntry(t *testing.T) {
	b := NewBuilder()
	blob, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	err = Extract(blob, map[string]string{"missing-id": "out.txt"}, t.TempDir())
	if err == nil {
		t.Fatalf("expected error for missing archive entry")
	}
}
