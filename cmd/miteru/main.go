// Package main is the Miteru CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/miteru/internal/caption"
	"github.com/hyperjump/miteru/internal/cli"
	"github.com/hyperjump/miteru/internal/config"
	"github.com/hyperjump/miteru/internal/embedding"
	"github.com/hyperjump/miteru/internal/generate"
	"github.com/hyperjump/miteru/internal/ingest"
	"github.com/hyperjump/miteru/internal/keyword"
	"github.com/hyperjump/miteru/internal/media"
	"github.com/hyperjump/miteru/internal/models"
	"github.com/hyperjump/miteru/internal/query"
	"github.com/hyperjump/miteru/internal/server"
	"github.com/hyperjump/miteru/internal/storage"
	"github.com/hyperjump/miteru/internal/vector"
	"github.com/hyperjump/miteru/internal/videoid"
	"github.com/hyperjump/miteru/internal/watcher"
	"github.com/hyperjump/miteru/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/miteru/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "miteru server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "videos":
		runVideos()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("miteru version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (watcher events, per-frame progress)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	pipeline := components.Pipeline
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			id := videoid.VideoID(path)
			title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if _, err := pipeline.Ingest(context.Background(), id, title, path, cfg.Sampling.DefaultFPS); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			id := videoid.VideoID(path)
			if _, err := components.VectorIndex.DeleteVideo(context.Background(), id); err != nil {
				logger.Warn("watch delete failed", zap.String("path", path), zap.Error(err))
			}
			if err := components.Storage.DeleteVideo(context.Background(), id); err != nil {
				logger.Warn("watch catalog delete failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Pipeline,
		components.Engine,
		components.Storage,
		components.VectorIndex,
		components.KeywordIndex,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.IndexPath != "" {
		if err := components.VectorIndex.Save(cfg.Storage.IndexPath); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.IndexPath), zap.Error(err))
		}
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	title := fs.String("title", "", "video title (default: filename)")
	fps := fs.Float64("fps", 0, "sampling rate in frames per second (0 = server default)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: miteru ingest [flags] <video-file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	report, err := ingestViaHTTP(*serverURL, path, *title, *fps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Video ingested: %s\n", report.VideoID)
	fmt.Printf("  state: %s  sampled: %d  captioned: %d  indexed: %d  skipped: %d\n",
		report.State, report.FramesSampled, report.FramesCaptioned, report.FramesIndexed, report.FramesSkipped)
	for _, f := range report.Failures {
		fmt.Printf("  frame %d (%s stage): %s\n", f.FrameIndex, f.Stage, f.Err)
	}
}

// ingestViaHTTP uploads a video file as multipart form data. Captioning every
// frame takes minutes for long videos, so the client timeout is generous.
func ingestViaHTTP(serverURL, path, title string, fps float64) (*ingest.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if title != "" {
		_ = mw.WriteField("title", title)
	}
	if fps > 0 {
		_ = mw.WriteField("target_fps", fmt.Sprintf("%g", fps))
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 2 * time.Hour}
	resp, err := client.Post(serverURL+"/api/v1/videos", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var report ingest.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &report, nil
}

// resolveVideoID accepts either a video ID or a path to the original file.
func resolveVideoID(arg string) string {
	if strings.HasPrefix(arg, "video:") {
		return arg
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return arg
	}
	return videoid.VideoID(abs)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	k := fs.Int("k", 0, "number of evidence frames to retrieve (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 2 {
		fmt.Println("Usage: miteru ask [flags] <video-id-or-path> <question...>")
		os.Exit(1)
	}
	videoID := resolveVideoID(fs.Arg(0))
	question := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	if question == "" {
		fmt.Println("Usage: miteru ask [flags] <video-id-or-path> <question...>")
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	answer, err := askViaHTTP(*serverURL, videoID, question, *k)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL, videoID, question string, k int) (*models.Answer, error) {
	body, err := json.Marshal(models.AskRequest{Question: question, K: k})
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Post(
		serverURL+"/api/v1/videos/"+url.PathEscape(videoID)+"/ask",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		// Synthesis failures still carry the retrieved evidence in the body.
		var answer models.Answer
		if json.Unmarshal(b, &answer) == nil && len(answer.Evidence) > 0 {
			fmt.Fprintf(os.Stderr, "Warning: answer synthesis unavailable, showing evidence only\n")
			return &answer, nil
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var answer models.Answer
	if err := json.Unmarshal(b, &answer); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &answer, nil
}

func runVideos() {
	fs := flag.NewFlagSet("videos", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/videos")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "List failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Videos []*models.Video `json:"videos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}
	if err := cli.WriteVideos(os.Stdout, out.Videos, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: miteru delete [flags] <video-id-or-path>")
		os.Exit(1)
	}
	videoID := resolveVideoID(fs.Arg(0))

	req, _ := http.NewRequest(http.MethodDelete,
		*serverURL+"/api/v1/videos/"+url.PathEscape(videoID), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Delete failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Video deleted: %s\n", videoID)
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Videos           int64                  `json:"videos"`
	VectorIndexSize  int                    `json:"vector_index_size"`
	KeywordIndexSize uint64                 `json:"keyword_index_size"`
	DiskUsageBytes   *int64                 `json:"disk_usage_bytes,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("videos:              %d   # ingested videos in the catalog\n", status.Videos)
		fmt.Printf("vector_index_size:   %d   # frame embeddings in the semantic index\n", status.VectorIndexSize)
		fmt.Printf("keyword_index_size:  %d   # captions in the keyword index\n", status.KeywordIndexSize)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:    %d   # catalog + indices on disk\n", *status.DiskUsageBytes)
		}
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			keys := make([]string, 0, len(status.Config))
			for k := range status.Config {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s: %v\n", k, status.Config[k])
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.Index
	KeywordIndex keyword.Index
	Pipeline     *ingest.Pipeline
	Engine       *query.Engine
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	ctx := context.Background()
	vectorIndex, err := vector.NewIndex(ctx, cfg.Retrieval.IndexType, cfg.Retrieval.PostgresURL, cfg.Retrieval.Dimensions)
	if err != nil {
		// Fall back to memory when the configured backend is unreachable.
		if cfg.Retrieval.IndexType != "memory" && cfg.Retrieval.IndexType != "" {
			logger.Warn("failed to create vector index, falling back to memory",
				zap.String("requested_type", cfg.Retrieval.IndexType),
				zap.Error(err))
			vectorIndex, err = vector.NewIndex(ctx, "memory", "", cfg.Retrieval.Dimensions)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize vector index: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to initialize vector index: %w", err)
		}
	}
	if cfg.Storage.IndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.IndexPath); loadErr != nil {
			logger.Warn("vector index load skipped",
				zap.String("path", cfg.Storage.IndexPath), zap.Error(loadErr))
		}
	}
	logger.Info("vector index initialized",
		zap.String("type", cfg.Retrieval.IndexType),
		zap.Int("dimensions", vectorIndex.Dimensions()),
		zap.Int("entries", vectorIndex.Size()))

	var keywordIndex keyword.Index
	if cfg.Retrieval.KeywordWeight > 0 {
		bleveIdx, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		keywordIndex = bleveIdx
	}

	embedder := embedding.NewCachedEmbedder(
		embedding.NewOllamaEmbedder(
			cfg.Ollama.BaseURL,
			cfg.Ollama.APIKey,
			cfg.Ollama.EmbeddingModel,
			cfg.Retrieval.Dimensions,
			time.Duration(cfg.Ollama.EmbedTimeoutSeconds)*time.Second,
			logger,
		),
		cfg.Retrieval.CacheSize,
	)
	captioner := caption.NewOllamaCaptioner(
		cfg.Ollama.BaseURL,
		cfg.Ollama.APIKey,
		cfg.Ollama.CaptionModel,
		time.Duration(cfg.Ollama.CaptionTimeoutSeconds)*time.Second,
		logger,
	)
	generator := generate.NewOllamaGenerator(
		cfg.Ollama.BaseURL,
		cfg.Ollama.APIKey,
		cfg.Ollama.ChatModel,
		time.Duration(cfg.Ollama.GenerateTimeoutSeconds)*time.Second,
		logger,
	)
	sampler := media.NewFFmpegSampler(logger)

	pipeline := ingest.NewPipeline(sampler, captioner, embedder, vectorIndex, keywordIndex, store, cfg, logger)
	engine := query.NewEngine(embedder, vectorIndex, keywordIndex, generator, cfg, logger)

	return &Components{
		Storage:      store,
		Embedder:     embedder,
		VectorIndex:  vectorIndex,
		KeywordIndex: keywordIndex,
		Pipeline:     pipeline,
		Engine:       engine,
	}, nil
}

func printUsage() {
	fmt.Println(`miteru - Ask questions about your videos

Usage:
  miteru server [flags]                          Start the HTTP server
  miteru ingest [flags] <video-file>             Upload and index a video
  miteru ask [flags] <video> <question...>       Ask a question about a video
  miteru videos [flags]                          List ingested videos
  miteru delete [flags] <video>                  Delete a video and its index entries
  miteru status [flags]                          Show catalog/index status
  miteru version                                 Show version
  miteru help                                    Show this help

<video> is a video ID (video:...) or a path to the original file.

Server Flags:
  --config string    Config file path (default: /usr/local/etc/miteru/config.yaml)
  --debug            Enable debug logging (watcher events, per-frame progress)

Ingest Flags:
  --server string    Server URL (default: http://localhost:8080)
  --title string     Video title (default: filename)
  --fps float        Sampling rate in frames per second (default: server config)

Ask Flags:
  --server string    Server URL (default: http://localhost:8080)
  --k int            Number of evidence frames to retrieve
  --output string    Output format: text or json (default: text)

Examples:
  miteru server
  miteru ingest --fps 0.5 trip.mp4
  miteru ask trip.mp4 "what color is the car?"
  miteru ask --output json video:3f2a... "when does the dog appear?"
  miteru videos
  miteru delete trip.mp4
  miteru status --output json`)
}
