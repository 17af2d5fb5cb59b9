package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/miteru/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		title TEXT,
		source_path TEXT NOT NULL,
		duration_seconds REAL NOT NULL DEFAULT 0,
		native_fps REAL NOT NULL DEFAULT 0,
		sample_fps REAL NOT NULL DEFAULT 0,
		frames_sampled INTEGER NOT NULL DEFAULT 0,
		frames_indexed INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL DEFAULT 'idle',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertVideo inserts a video row, replacing the existing row with the same ID.
// CreatedAt is preserved on update.
func (s *SQLiteStorage) UpsertVideo(ctx context.Context, video *models.Video) error {
	now := time.Now()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (id, title, source_path, duration_seconds, native_fps, sample_fps,
		                     frames_sampled, frames_indexed, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			source_path = excluded.source_path,
			duration_seconds = excluded.duration_seconds,
			native_fps = excluded.native_fps,
			sample_fps = excluded.sample_fps,
			frames_sampled = excluded.frames_sampled,
			frames_indexed = excluded.frames_indexed,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		video.ID, video.Title, video.SourcePath, video.DurationSeconds, video.NativeFPS,
		video.SampleFPS, video.FramesSampled, video.FramesIndexed, video.State,
		video.CreatedAt, video.UpdatedAt,
	)
	return err
}

// GetVideo returns a video by ID.
func (s *SQLiteStorage) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	var v models.Video
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, source_path, duration_seconds, native_fps, sample_fps,
		        frames_sampled, frames_indexed, state, created_at, updated_at
		 FROM videos WHERE id = ?`, id,
	).Scan(&v.ID, &v.Title, &v.SourcePath, &v.DurationSeconds, &v.NativeFPS, &v.SampleFPS,
		&v.FramesSampled, &v.FramesIndexed, &v.State, &v.CreatedAt, &v.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("video not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVideos returns videos ordered by creation time, newest first.
func (s *SQLiteStorage) ListVideos(ctx context.Context, offset, limit int) ([]*models.Video, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source_path, duration_seconds, native_fps, sample_fps,
		        frames_sampled, frames_indexed, state, created_at, updated_at
		 FROM videos ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.Title, &v.SourcePath, &v.DurationSeconds, &v.NativeFPS,
			&v.SampleFPS, &v.FramesSampled, &v.FramesIndexed, &v.State,
			&v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		videos = append(videos, &v)
	}
	return videos, rows.Err()
}

// DeleteVideo removes a video by ID.
func (s *SQLiteStorage) DeleteVideo(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	return err
}

// CountVideos returns the total number of cataloged videos.
func (s *SQLiteStorage) CountVideos(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
