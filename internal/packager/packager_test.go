package packager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/capsulenv/capsulenv/internal/capsulefooter"
	"github.com/capsulenv/capsulenv/internal/cerr"
)

func TestPackageUnencryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	runtimeDir := filepath.Join(dir, "runtimes")
	if err := os.MkdirAll(runtimeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runtimeDir, "x86_64-linux"), []byte("#!fake-runtime\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	sourcePath := filepath.Join(dir, "app.json")
	if err := os.WriteFile(sourcePath, []byte(`{
		"version": "1.0.0",
		"processes": {"a": {"cmd": "/bin/true", "restart_policy": "never"}}
	}`), 0o644); err != nil {
		t.Fatal(err)
	}

	outPath, err := Package(Options{
		SourcePath:   sourcePath,
		TargetTriple: "x86_64-linux",
		RuntimeDir:   runtimeDir,
	})
	if err != nil {
		t.Fatalf("package: %v", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Fatalf("mode = %v, want 0755", info.Mode().Perm())
	}

	payload, encrypted, err := capsulefooter.Locate(outPath)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if encrypted {
		t.Fatalf("expected unencrypted payload")
	}
	if len(payload) == 0 {
		t.Fatalf("expected non-empty payload")
	}
}

func TestPackageMissingRuntimeFailsWithUnsupportedTarget(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "app.json")
	os.WriteFile(sourcePath, []byte(`{"version":"1.0.0","processes":{}}`), 0o644)

	_, err := Package(Options{SourcePath: sourcePath, TargetTriple: "sparc-solaris", RuntimeDir: dir})
	if err == nil {
		t.Fatalf("expected error for missing runtime image")
	}
	if ce, ok := err.(*cerr.Error); !ok || ce.Kind != cerr.KindUnsupportedTarget {
		t.Errorf("expected UnsupportedTarget, got %v", err)
	}
}
