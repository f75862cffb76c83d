package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ctoint/internal/alloc"
)

const sampleSrc = `void *make_thing(void) {
  void *p = malloc(16);
  return p;
}
`

func TestFixFile_WritesRewrittenOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.c")
	out := filepath.Join(dir, "a.fixed.c")
	if err := os.WriteFile(in, []byte(sampleSrc), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	workspace = dir
	defer func() { workspace = "" }()

	if err := fixFile(in, out, alloc.DefaultAllocators); err != nil {
		t.Fatalf("fixFile: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(got), "int make_thing(void **out)") {
		t.Errorf("expected rewritten signature, got:\n%s", got)
	}
}

func TestFixFile_InPlaceWithBackup(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.c")
	if err := os.WriteFile(in, []byte(sampleSrc), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".ctoint.yaml"), []byte("in_place_backup: true\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	workspace = dir
	configPath = ".ctoint.yaml"
	defer func() { workspace = ""; configPath = ".ctoint.yaml" }()

	if err := fixFile(in, in, alloc.DefaultAllocators); err != nil {
		t.Fatalf("fixFile: %v", err)
	}

	if _, err := os.Stat(in + ".orig"); err != nil {
		t.Errorf("expected .orig backup, stat failed: %v", err)
	}
	rewritten, err := os.ReadFile(in)
	if err != nil {
		t.Fatalf("read rewritten: %v", err)
	}
	if !strings.Contains(string(rewritten), "int make_thing") {
		t.Errorf("expected in-place rewrite, got:\n%s", rewritten)
	}
}

func TestFixTree_RewritesEveryCFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.c"), []byte(sampleSrc), 0644); err != nil {
		t.Fatalf("write a.c: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.c"), []byte(sampleSrc), 0644); err != nil {
		t.Fatalf("write b.c: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatalf("write notes.txt: %v", err)
	}

	workspace = dir
	defer func() { workspace = "" }()

	if err := fixTree(dir, alloc.DefaultAllocators); err != nil {
		t.Fatalf("fixTree: %v", err)
	}

	for _, p := range []string{filepath.Join(dir, "a.c"), filepath.Join(sub, "b.c")} {
		got, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !strings.Contains(string(got), "int make_thing") {
			t.Errorf("%s was not rewritten:\n%s", p, got)
		}
	}
}
