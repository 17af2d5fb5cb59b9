// Package config provides configuration loading and structs for the Miteru server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Sampling  SamplingConfig  `yaml:"sampling"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the catalog database, indices, and media files.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	IndexPath      string `yaml:"index_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
	VideosDir      string `yaml:"videos_dir"`
	FramesDir      string `yaml:"frames_dir"`
	// KeepFrames retains extracted frame images after captioning (debugging aid).
	KeepFrames bool `yaml:"keep_frames"`
}

// OllamaConfig holds settings for the local model server. The endpoint is the
// OpenAI-compatible API exposed by Ollama; any server with the same surface works.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	CaptionModel   string `yaml:"caption_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`

	CaptionTimeoutSeconds  int `yaml:"caption_timeout_seconds"`
	EmbedTimeoutSeconds    int `yaml:"embed_timeout_seconds"`
	GenerateTimeoutSeconds int `yaml:"generate_timeout_seconds"`
}

// SamplingConfig holds frame sampling bounds and the default rate.
type SamplingConfig struct {
	DefaultFPS float64 `yaml:"default_fps"`
	MinFPS     float64 `yaml:"min_fps"`
	MaxFPS     float64 `yaml:"max_fps"`
}

// ClampFPS returns fps clamped into [MinFPS, MaxFPS]; non-positive values
// fall back to DefaultFPS.
func (s *SamplingConfig) ClampFPS(fps float64) float64 {
	if fps <= 0 {
		fps = s.DefaultFPS
	}
	if fps < s.MinFPS {
		fps = s.MinFPS
	}
	if fps > s.MaxFPS {
		fps = s.MaxFPS
	}
	return fps
}

// RetrievalConfig holds vector index and retrieval settings.
type RetrievalConfig struct {
	// IndexType selects the vector index backend: "memory" (default) or "pgvector".
	IndexType   string `yaml:"index_type"`
	PostgresURL string `yaml:"postgres_url"`
	Dimensions  int    `yaml:"dimensions"`

	DefaultK int `yaml:"default_k"`
	MinK     int `yaml:"min_k"`
	MaxK     int `yaml:"max_k"`

	// KeywordWeight > 0 enables hybrid retrieval: caption keyword hits are
	// fused with semantic hits. 0 keeps retrieval purely semantic.
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	TopKCandidates int     `yaml:"top_k_candidates"`

	CacheSize int `yaml:"cache_size"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	// FailureThreshold is the fraction of sampled frames that may fail
	// captioning/embedding before the whole run is failed. 1.0 fails the run
	// only when every frame failed.
	FailureThreshold float64 `yaml:"failure_threshold"`
}

// WatchConfig holds drop-directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VideosDir = expandPath(cfg.Storage.VideosDir, configDir)
	cfg.Storage.FramesDir = expandPath(cfg.Storage.FramesDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
