package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/miteru/internal/caption"
	"github.com/hyperjump/miteru/internal/embedding"
	"github.com/hyperjump/miteru/internal/generate"
	"github.com/hyperjump/miteru/internal/ingest"
	"github.com/hyperjump/miteru/internal/media"
	"github.com/hyperjump/miteru/internal/models"
	"github.com/hyperjump/miteru/internal/storage"
	"github.com/hyperjump/miteru/internal/videoid"
)

// maxUploadBytes caps video uploads at 2 GiB.
const maxUploadBytes = 2 << 30

// handleUploadVideo accepts a multipart upload ("video" file field, optional
// "title" and "target_fps" fields), stores the file, and ingests it synchronously.
func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing video file field")
		return
	}
	defer file.Close()

	targetFPS := 0.0
	if v := r.FormValue("target_fps"); v != "" {
		targetFPS, err = strconv.ParseFloat(v, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid target_fps")
			return
		}
	}
	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	path, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.logger.Error("saving upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	id := videoid.VideoID(path)
	s.logger.Info("video uploaded",
		zap.String("video_id", id),
		zap.String("filename", header.Filename),
		zap.Float64("target_fps", targetFPS))

	report, err := s.pipeline.Ingest(r.Context(), id, title, path, targetFPS)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("video_id", id), zap.Error(err))
		s.respondJSON(w, ingestErrorStatus(err), map[string]interface{}{
			"error":  err.Error(),
			"report": report,
		})
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.config.Storage.VideosDir, 0755); err != nil {
		return "", fmt.Errorf("create videos dir: %w", err)
	}
	ext := filepath.Ext(filename)
	path := filepath.Join(s.config.Storage.VideosDir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create video file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write video file: %w", err)
	}
	return path, nil
}

// ingestErrorStatus maps pipeline errors to HTTP status codes.
func ingestErrorStatus(err error) int {
	switch {
	case errors.Is(err, media.ErrUnreadable), errors.Is(err, ingest.ErrNoFrames):
		return http.StatusUnprocessableEntity
	case errors.Is(err, caption.ErrModelUnavailable), errors.Is(err, embedding.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	offset, limit := 0, 100
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	videos, err := s.storage.ListVideos(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list videos failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if videos == nil {
		videos = []*models.Video{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"videos": videos})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	video, err := s.storage.GetVideo(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "video not found")
		return
	}
	s.respondJSON(w, http.StatusOK, video)
}

// handleDeleteVideo removes a video from the catalog and both indices.
func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if _, err := s.storage.GetVideo(ctx, id); err != nil {
		s.respondError(w, http.StatusNotFound, "video not found")
		return
	}

	removed, err := s.index.DeleteVideo(ctx, id)
	if err != nil {
		s.logger.Error("index deletion failed", zap.String("video_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.keywords != nil {
		for i := 0; i < removed; i++ {
			if err := s.keywords.Delete(ctx, ingest.EntryID(id, i)); err != nil {
				s.logger.Warn("keyword deletion failed", zap.String("video_id", id), zap.Error(err))
				break
			}
		}
	}
	if err := s.storage.DeleteVideo(ctx, id); err != nil {
		s.logger.Error("catalog deletion failed", zap.String("video_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.index.Save(s.config.Storage.IndexPath); err != nil {
		s.logger.Warn("failed to persist vector index", zap.Error(err))
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "deleted",
		"entries_removed": removed,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question cannot be empty")
		return
	}

	if _, err := s.storage.GetVideo(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "video not found")
		return
	}

	answer, err := s.engine.Ask(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, generate.ErrUnavailable) && answer != nil {
			// Return the retrieved evidence even though synthesis failed.
			s.respondJSON(w, http.StatusBadGateway, answer)
			return
		}
		if errors.Is(err, embedding.ErrUnavailable) {
			s.respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.logger.Error("ask failed", zap.String("video_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoCount, err := s.storage.CountVideos(ctx)
	if err != nil {
		s.logger.Error("status: count videos failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"videos":            videoCount,
		"vector_index_size": s.index.Size(),
	}
	if s.keywords != nil {
		if n, err := s.keywords.DocCount(); err == nil {
			resp["keyword_index_size"] = n
		}
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.IndexPath,
		s.config.Storage.BleveIndexPath,
		s.config.Storage.VideosDir,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"index_type":           s.config.Retrieval.IndexType,
		"embedding_dimensions": s.index.Dimensions(),
		"embedding_model":      s.config.Ollama.EmbeddingModel,
		"caption_model":        s.config.Ollama.CaptionModel,
		"chat_model":           s.config.Ollama.ChatModel,
		"default_fps":          s.config.Sampling.DefaultFPS,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
