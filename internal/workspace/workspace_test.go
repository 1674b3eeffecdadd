package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindRootByMarker(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "kurtosis.yml"))
	touch(t, filepath.Join(root, "src", "deep", "lib.star"))

	got := FindRoot(filepath.Join(root, "src", "deep", "lib.star"))
	if got != root {
		t.Errorf("expected %s, got %s", root, got)
	}
}

func TestFindRootFallsBackToStartDir(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "lib.star"))

	got := FindRoot(filepath.Join(dir, "lib.star"))
	if got != dir {
		t.Errorf("expected fallback to %s, got %s", dir, got)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "main.star"))
	touch(t, filepath.Join(root, "src", "lib.star"))
	touch(t, filepath.Join(root, "src", "notes.txt"))
	touch(t, filepath.Join(root, ".git", "hook.star"))
	touch(t, filepath.Join(root, "src", "skip.star"))

	files, err := Scan([]string{root}, []string{".git"}, []string{"skip.star"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []string{
		filepath.Join(root, "main.star"),
		filepath.Join(root, "src", "lib.star"),
	}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d: expected %s, got %s", i, want[i], files[i])
		}
	}
}

func TestScanSingleFileAndDedupe(t *testing.T) {
	root := t.TempDir()
	star := filepath.Join(root, "main.star")
	touch(t, star)
	touch(t, filepath.Join(root, "readme.md"))

	files, err := Scan([]string{star, root, filepath.Join(root, "readme.md")}, nil, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(files) != 1 || files[0] != star {
		t.Errorf("expected just %s, got %v", star, files)
	}
}

func TestScanRejectsBadPattern(t *testing.T) {
	if _, err := Scan([]string{t.TempDir()}, []string{"[unclosed"}, nil); err == nil {
		t.Fatal("expected error for invalid glob pattern")
	}
}
