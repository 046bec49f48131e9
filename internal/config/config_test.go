package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Rag.ChunkSize != 900 || cfg.Rag.ChunkOverlap != 150 {
		t.Errorf("unexpected chunking defaults: %d/%d", cfg.Rag.ChunkSize, cfg.Rag.ChunkOverlap)
	}
	if cfg.Rag.MinSimilarity != 0.3 {
		t.Errorf("unexpected similarity floor: %v", cfg.Rag.MinSimilarity)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("unexpected server address: %s", cfg.Server.Address)
	}
	if cfg.Databases.Milvus.Collection != "book_chunks" {
		t.Errorf("unexpected collection name: %s", cfg.Databases.Milvus.Collection)
	}
}

func TestLoadConfigOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  address: ":9090"
rag:
  chunkSize: 400
  requestTimeout: 5s
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("explicit address lost: %s", cfg.Server.Address)
	}
	if cfg.Rag.ChunkSize != 400 {
		t.Errorf("explicit chunk size lost: %d", cfg.Rag.ChunkSize)
	}
	if cfg.Rag.RequestTimeout != 5*time.Second {
		t.Errorf("explicit timeout lost: %v", cfg.Rag.RequestTimeout)
	}
	if cfg.Rag.ChunkOverlap != 150 {
		t.Errorf("unset values must keep their defaults, got overlap %d", cfg.Rag.ChunkOverlap)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
