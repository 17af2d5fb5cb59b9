package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("default port: %d", cfg.Server.Port)
	}
	if cfg.Ollama.EmbeddingModel != "nomic-embed-text" {
		t.Errorf("default embedding model: %q", cfg.Ollama.EmbeddingModel)
	}
	if cfg.Retrieval.Dimensions != 768 {
		t.Errorf("default dimensions: %d", cfg.Retrieval.Dimensions)
	}
	if cfg.Retrieval.DefaultK != 10 || cfg.Retrieval.MinK != 1 || cfg.Retrieval.MaxK != 20 {
		t.Errorf("default k bounds: %d/%d/%d", cfg.Retrieval.DefaultK, cfg.Retrieval.MinK, cfg.Retrieval.MaxK)
	}
	if cfg.Retrieval.SemanticWeight != 1.0 || cfg.Retrieval.KeywordWeight != 0 {
		t.Errorf("default weights: %v/%v", cfg.Retrieval.SemanticWeight, cfg.Retrieval.KeywordWeight)
	}
	if cfg.Ingest.FailureThreshold != 1.0 {
		t.Errorf("default failure threshold: %v", cfg.Ingest.FailureThreshold)
	}
	if cfg.Sampling.DefaultFPS != 1.0 {
		t.Errorf("default fps: %v", cfg.Sampling.DefaultFPS)
	}
	if !cfg.Watch.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
}

func TestApplyDefaults_keywordOnlyKeepsSemanticZero(t *testing.T) {
	cfg := Config{}
	cfg.Retrieval.KeywordWeight = 0.4
	ApplyDefaults(&cfg)
	if cfg.Retrieval.SemanticWeight != 0 {
		t.Errorf("explicit keyword weight should not force semantic weight: %v", cfg.Retrieval.SemanticWeight)
	}
}

func TestClampFPS(t *testing.T) {
	s := SamplingConfig{DefaultFPS: 1.0, MinFPS: 0.2, MaxFPS: 5.0}
	if got := s.ClampFPS(0); got != 1.0 {
		t.Errorf("zero fps should use default: %v", got)
	}
	if got := s.ClampFPS(0.05); got != 0.2 {
		t.Errorf("below min: %v", got)
	}
	if got := s.ClampFPS(30); got != 5.0 {
		t.Errorf("above max: %v", got)
	}
	if got := s.ClampFPS(2.5); got != 2.5 {
		t.Errorf("in range: %v", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9090
storage:
  database_path: ./data/catalog.db
ollama:
  caption_model: llava
retrieval:
  default_k: 5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port: %d", cfg.Server.Port)
	}
	if cfg.Ollama.CaptionModel != "llava" {
		t.Errorf("caption model: %q", cfg.Ollama.CaptionModel)
	}
	if cfg.Retrieval.DefaultK != 5 {
		t.Errorf("default_k: %d", cfg.Retrieval.DefaultK)
	}
	// Relative ./ path is expanded relative to the config directory.
	want := filepath.Join(dir, "data/catalog.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database path: %q, want %q", cfg.Storage.DatabasePath, want)
	}
	// Untouched fields still get defaults.
	if cfg.Retrieval.MaxK != 20 {
		t.Errorf("max_k default: %d", cfg.Retrieval.MaxK)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
