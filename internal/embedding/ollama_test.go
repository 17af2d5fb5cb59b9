package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeEmbeddingsServer answers the OpenAI-compatible embeddings endpoint with
// a fixed vector.
func fakeEmbeddingsServer(t *testing.T, vector []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  "test-model",
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": vector},
			},
		})
	}))
}

func TestOllamaEmbedder_normalizesOutput(t *testing.T) {
	srv := fakeEmbeddingsServer(t, []float32{3, 4})
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "key", "test-model", 2, time.Second, zap.NewNop())
	emb, err := e.Embed(context.Background(), "a dog on a beach")
	if err != nil {
		t.Fatal(err)
	}
	if len(emb) != 2 {
		t.Fatalf("dimensions: %d", len(emb))
	}
	if math.Abs(float64(emb[0])-0.6) > 1e-6 || math.Abs(float64(emb[1])-0.8) > 1e-6 {
		t.Errorf("embedding should be unit-normalized: %v", emb)
	}
}

func TestOllamaEmbedder_dimensionMismatch(t *testing.T) {
	srv := fakeEmbeddingsServer(t, []float32{3, 4})
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "key", "test-model", 3, time.Second, zap.NewNop())
	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Error("wrong response dimensions should be rejected")
	}
}

func TestOllamaEmbedder_unreachable(t *testing.T) {
	srv := fakeEmbeddingsServer(t, []float32{3, 4})
	srv.Close()

	e := NewOllamaEmbedder(srv.URL, "key", "test-model", 2, time.Second, zap.NewNop())
	_, err := e.Embed(context.Background(), "text")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("unreachable server should be ErrUnavailable: %v", err)
	}
}

func TestMockEmbedder_unitNorm(t *testing.T) {
	e := NewMockEmbedder(16)
	emb, err := e.Embed(context.Background(), "a dog on a beach")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("squared norm: %v", sum)
	}
}
