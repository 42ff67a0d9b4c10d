package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "guides")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	write := func(p, content string) {
		t.Helper()
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(filepath.Join(dir, "readme.md"), "# Readme")
	write(filepath.Join(sub, "setup.markdown"), "# Setup")
	write(filepath.Join(sub, "notes.txt"), "not markdown")

	files, err := Load([]string{dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 markdown files, got %d", len(files))
	}
	for _, f := range files {
		if f.Content == "" || f.ModTime.IsZero() {
			t.Errorf("file %s missing content or mod time", f.Path)
		}
	}
}

func TestLoadNoMarkdown(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load([]string{dir}); err == nil {
		t.Error("expected error when nothing is found")
	}
}

func TestIsMarkdown(t *testing.T) {
	if !IsMarkdown("a/B.MD") || !IsMarkdown("x.markdown") || IsMarkdown("x.txt") {
		t.Error("IsMarkdown misclassifies")
	}
}
