package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Type != "chroma" || cfg.Store.URL != "http://localhost:8000" {
		t.Errorf("store defaults wrong: %+v", cfg.Store)
	}
	if cfg.Store.Collection != "documentation" {
		t.Errorf("collection default = %q", cfg.Store.Collection)
	}
	if cfg.Chunking.ChunkSize != 1000 || cfg.Chunking.Overlap != 200 {
		t.Errorf("chunking defaults wrong: %+v", cfg.Chunking)
	}
	if cfg.Ingest.BatchSize != 50 {
		t.Errorf("batch size default = %d", cfg.Ingest.BatchSize)
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "store:\n  type: memory\nchunking:\n  chunk_size: 500\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("store type = %q", cfg.Store.Type)
	}
	if cfg.Chunking.ChunkSize != 500 {
		t.Errorf("chunk size = %d", cfg.Chunking.ChunkSize)
	}
	if cfg.Chunking.Overlap != 200 {
		t.Errorf("overlap default not applied: %d", cfg.Chunking.Overlap)
	}
	if cfg.Embedder.Model != "text-embedding-3-small" {
		t.Errorf("embedder model default not applied: %q", cfg.Embedder.Model)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Debug = true
	cfg.Watch.Directories = []string{"./docs"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Debug || len(got.Watch.Directories) != 1 {
		t.Errorf("round trip lost fields: %+v", got)
	}
}
