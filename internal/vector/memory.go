package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory vector index using brute-force cosine search.
// Suitable for single-node deployments and tests; frame counts stay small
// enough (one entry per sampled frame) that a scan is fast.
type MemoryIndex struct {
	dimensions int
	entries    []Entry
	byID       map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		entries:    make([]Entry, 0),
		byID:       make(map[string]int),
	}, nil
}

// Upsert inserts entries, replacing any existing entry with the same ID.
func (m *MemoryIndex) Upsert(ctx context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) != m.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(e.Vector), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		e.Vector = vec
		if slot, ok := m.byID[e.ID]; ok {
			m.entries[slot] = e
			continue
		}
		m.byID[e.ID] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return nil
}

// Search returns the top-k entries for videoID by cosine similarity.
func (m *MemoryIndex) Search(ctx context.Context, videoID string, query []float32, k int) ([]Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 {
		return nil, nil
	}

	results := make([]Result, 0, k)
	for _, e := range m.entries {
		if videoID != "" && e.VideoID != videoID {
			continue
		}
		results = append(results, Result{Entry: e, Score: CosineSimilarity(query, e.Vector)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Get returns the entry with the given ID, or nil when absent.
func (m *MemoryIndex) Get(ctx context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	e := m.entries[slot]
	return &e, nil
}

// DeleteVideo removes all entries for videoID and returns how many were removed.
func (m *MemoryIndex) DeleteVideo(ctx context.Context, videoID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if e.VideoID != videoID {
			kept = append(kept, e)
		}
	}
	removed := len(m.entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	m.entries = kept
	m.byID = make(map[string]int, len(kept))
	for i, e := range kept {
		m.byID[e.ID] = i
	}
	return removed, nil
}

// Count returns the number of entries for videoID.
func (m *MemoryIndex) Count(ctx context.Context, videoID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if e.VideoID == videoID {
			n++
		}
	}
	return n, nil
}

// Size returns the total number of entries in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Dimensions returns the embedding dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Save persists the index to path. Directory is created if needed.
// Format: dimensions (4), count (4), then per entry: id, videoID, and caption
// as length-prefixed strings, frameIndex (4), timestamp (8), vector (dimensions*4).
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, e := range m.entries {
		if err := writeString(f, e.ID); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := writeString(f, e.VideoID); err != nil {
			return fmt.Errorf("write video id: %w", err)
		}
		if err := writeString(f, e.Caption); err != nil {
			return fmt.Errorf("write caption: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(e.FrameIndex)); err != nil {
			return fmt.Errorf("write frame index: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, e.Timestamp); err != nil {
			return fmt.Errorf("write timestamp: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	entries := make([]Entry, 0, n)
	byID := make(map[string]int, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var e Entry
		if e.ID, err = readString(f); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if e.VideoID, err = readString(f); err != nil {
			return fmt.Errorf("read video id: %w", err)
		}
		if e.Caption, err = readString(f); err != nil {
			return fmt.Errorf("read caption: %w", err)
		}
		var frameIndex uint32
		if err := binary.Read(f, binary.LittleEndian, &frameIndex); err != nil {
			return fmt.Errorf("read frame index: %w", err)
		}
		e.FrameIndex = int(frameIndex)
		if err := binary.Read(f, binary.LittleEndian, &e.Timestamp); err != nil {
			return fmt.Errorf("read timestamp: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		e.Vector = bytesToFloat32Slice(buf)
		byID[e.ID] = len(entries)
		entries = append(entries, e)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	m.byID = byID
	return nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
