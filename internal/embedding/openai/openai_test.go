package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"docrag/internal/domain"
)

func TestNewClientMissingKey(t *testing.T) {
	t.Setenv("DOCRAG_TEST_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "DOCRAG_TEST_KEY"})
	if !errors.Is(err, domain.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestEmbedOpenAIShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()
	t.Setenv("DOCRAG_TEST_KEY", "sk-test")
	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "DOCRAG_TEST_KEY"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("vector length = %d", len(vec))
	}
	if c.Dimension() != 3 {
		t.Errorf("Dimension = %d after first embed", c.Dimension())
	}
}

func TestEmbedOllamaShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{1, 2}})
	}))
	defer srv.Close()
	t.Setenv("DOCRAG_TEST_KEY", "k")
	c, _ := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "DOCRAG_TEST_KEY"})
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vector length = %d", len(vec))
	}
}

func TestEmbedConcurrentDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()
	t.Setenv("DOCRAG_TEST_KEY", "k")
	c, _ := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "DOCRAG_TEST_KEY"})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Embed(context.Background(), "hello"); err != nil {
				t.Errorf("Embed: %v", err)
			}
			_ = c.Dimension()
		}()
	}
	wg.Wait()
	if c.Dimension() != 3 {
		t.Errorf("Dimension = %d after concurrent embeds", c.Dimension())
	}
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.5}}},
		})
	}))
	defer srv.Close()
	t.Setenv("DOCRAG_TEST_KEY", "k")
	c, _ := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "DOCRAG_TEST_KEY"})
	if _, err := c.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed should survive transient errors: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}
