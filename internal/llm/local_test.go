package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yuv-man/habeat-server/internal/llm"
	"github.com/yuv-man/habeat-server/internal/testhelpers"
)

func TestLocalClientGenerate(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "llama3.1" {
			t.Errorf("model = %q, want llama3.1", req.Model)
		}
		if req.Stream {
			t.Error("expected non-streaming request")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": "{\"day\": \"Monday\"}", "done": true}`))
	}))
	defer ts.Close()

	client := llm.NewLocalClient(ts.URL, "", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	got, err := client.Generate(context.Background(), "plan my week")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if want := `{"day": "Monday"}`; got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestLocalClientGenerateServerError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := llm.NewLocalClient(ts.URL, "", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if _, err := client.Generate(context.Background(), "plan my week"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestLocalClientHealthy(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer ts.Close()

	client := llm.NewLocalClient(ts.URL, "", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err := client.Healthy(context.Background()); err != nil {
		t.Fatalf("Healthy: %v", err)
	}

	ts.Close()
	if err := client.Healthy(context.Background()); err == nil {
		t.Fatal("expected error once server is down")
	}
}
