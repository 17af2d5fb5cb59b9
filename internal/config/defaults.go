package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/miteru/data/db/catalog.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/miteru/data/indices/frames.vec"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/miteru/data/indices/bleve"
	}
	if cfg.Storage.VideosDir == "" {
		cfg.Storage.VideosDir = "/usr/local/var/miteru/data/videos"
	}
	if cfg.Storage.FramesDir == "" {
		cfg.Storage.FramesDir = "/usr/local/var/miteru/data/frames"
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = "http://127.0.0.1:11434/v1"
	}
	if cfg.Ollama.APIKey == "" {
		// Ollama ignores the key but the client requires one.
		cfg.Ollama.APIKey = "ollama"
	}
	if cfg.Ollama.CaptionModel == "" {
		cfg.Ollama.CaptionModel = "llama3.2-vision:11b"
	}
	if cfg.Ollama.EmbeddingModel == "" {
		cfg.Ollama.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Ollama.ChatModel == "" {
		cfg.Ollama.ChatModel = "llama3:instruct"
	}
	if cfg.Ollama.CaptionTimeoutSeconds == 0 {
		cfg.Ollama.CaptionTimeoutSeconds = 60
	}
	if cfg.Ollama.EmbedTimeoutSeconds == 0 {
		cfg.Ollama.EmbedTimeoutSeconds = 10
	}
	if cfg.Ollama.GenerateTimeoutSeconds == 0 {
		cfg.Ollama.GenerateTimeoutSeconds = 120
	}
	if cfg.Sampling.DefaultFPS == 0 {
		cfg.Sampling.DefaultFPS = 1.0
	}
	if cfg.Sampling.MinFPS == 0 {
		cfg.Sampling.MinFPS = 0.2
	}
	if cfg.Sampling.MaxFPS == 0 {
		cfg.Sampling.MaxFPS = 5.0
	}
	if cfg.Retrieval.IndexType == "" {
		cfg.Retrieval.IndexType = "memory"
	}
	if cfg.Retrieval.Dimensions == 0 {
		cfg.Retrieval.Dimensions = 768
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 10
	}
	if cfg.Retrieval.MinK == 0 {
		cfg.Retrieval.MinK = 1
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 20
	}
	if cfg.Retrieval.SemanticWeight == 0 && cfg.Retrieval.KeywordWeight == 0 {
		cfg.Retrieval.SemanticWeight = 1.0
	}
	if cfg.Retrieval.TopKCandidates == 0 {
		cfg.Retrieval.TopKCandidates = 50
	}
	if cfg.Retrieval.CacheSize == 0 {
		cfg.Retrieval.CacheSize = 1024
	}
	if cfg.Ingest.FailureThreshold == 0 {
		cfg.Ingest.FailureThreshold = 1.0
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = []string{"mp4", "avi", "mov", "mkv"}
	}
}
