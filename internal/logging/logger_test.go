package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitialize_NoConfigFileDefaultsToDisabled(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if IsDebugMode() {
		t.Fatalf("expected debug mode disabled with no .ctoint.yaml present")
	}
	if _, err := os.Stat(filepath.Join(ws, ".ctoint", "logs")); !os.IsNotExist(err) {
		t.Fatalf("expected no logs directory to be created outside debug mode")
	}
}

func TestInitialize_DebugModeCreatesLogFile(t *testing.T) {
	ws := t.TempDir()
	yamlCfg := "logging:\n  debug_mode: true\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(ws, ".ctoint.yaml"), []byte(yamlCfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	if !IsDebugMode() {
		t.Fatalf("expected debug mode enabled")
	}

	l := Get(CategoryTokenizer)
	l.Info("tokenized %d bytes", 42)

	entries, err := os.ReadDir(filepath.Join(ws, ".ctoint", "logs"))
	if err != nil {
		t.Fatalf("read logs dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected at least one log file")
	}
}

func TestGet_DisabledCategoryIsNoOp(t *testing.T) {
	ws := t.TempDir()
	yamlCfg := "logging:\n  debug_mode: true\n  categories:\n    tokenizer: false\n"
	if err := os.WriteFile(filepath.Join(ws, ".ctoint.yaml"), []byte(yamlCfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	l := Get(CategoryTokenizer)
	if l.logger != nil {
		t.Fatalf("expected a no-op logger for a disabled category")
	}
	l.Info("should not panic even though disabled")
}
