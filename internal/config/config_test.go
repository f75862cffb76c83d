package config

import (
	"os"
	"path/filepath"
	"testing"

	"ctoint/internal/alloc"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "ctoint" {
		t.Errorf("expected Name=ctoint, got %s", cfg.Name)
	}
	if !cfg.InPlaceBackup {
		t.Errorf("expected InPlaceBackup=true by default")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "ctoint" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ctoint.yaml")

	cfg := DefaultConfig()
	cfg.Allocators = append(cfg.Allocators, AllocatorOverride{
		Name:        "xmalloc",
		ResultShape: "returned_pointer",
		CheckStyle:  "ptr_null",
	})

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Allocators) != 1 || loaded.Allocators[0].Name != "xmalloc" {
		t.Errorf("expected xmalloc override to round-trip, got %+v", loaded.Allocators)
	}
}

func TestResolveAllocators_IncludesOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Allocators = []AllocatorOverride{
		{Name: "xmalloc", ResultShape: "returned_pointer", CheckStyle: "ptr_null"},
		{Name: "xasprintf", ResultShape: "out_param_pointer", CheckStyle: "int_negative"},
	}

	specs := cfg.ResolveAllocators()
	if len(specs) != len(alloc.DefaultAllocators)+2 {
		t.Fatalf("expected %d allocators, got %d", len(alloc.DefaultAllocators)+2, len(specs))
	}

	var found bool
	for _, s := range specs {
		if s.Name == "xasprintf" {
			found = true
			if s.ResultShape != alloc.OutParamPointer || s.CheckStyle != alloc.CheckIntNegative {
				t.Errorf("xasprintf resolved incorrectly: %+v", s)
			}
		}
	}
	if !found {
		t.Errorf("expected xasprintf override present")
	}
}

func TestLoad_MalformedYamlReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error for malformed yaml")
	}
}
