package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:3b"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "llama3.2:3b", nil)
	if !client.IsAvailable(context.Background()) {
		t.Fatalf("expected available backend")
	}
}

func TestIsAvailableFalseOnBadStatusAndDeadServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	client := New(server.URL, "llama3.2:3b", nil)
	if client.IsAvailable(context.Background()) {
		t.Fatalf("expected unavailable on 500")
	}

	server.Close()
	if client.IsAvailable(context.Background()) {
		t.Fatalf("expected unavailable on connection failure")
	}
}

func TestGenerateBuildsPromptAndOptions(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"use PermitRootLogin no"}`))
	}))
	defer server.Close()

	client := New(server.URL, "llama3.2:3b", nil)
	answer := client.Generate(context.Background(), "how to disable root ssh?", "Control: V-1\nTitle: root ssh")
	if answer != "use PermitRootLogin no" {
		t.Fatalf("unexpected answer %q", answer)
	}

	prompt, _ := payload["prompt"].(string)
	if !strings.Contains(prompt, "how to disable root ssh?") || !strings.Contains(prompt, "Control: V-1") {
		t.Fatalf("unexpected prompt: %s", prompt)
	}
	if stream, _ := payload["stream"].(bool); stream {
		t.Fatalf("expected stream disabled")
	}
	options, _ := payload["options"].(map[string]any)
	if options["num_predict"].(float64) != 150 || options["num_ctx"].(float64) != 1024 {
		t.Fatalf("unexpected generation options %v", options)
	}
}

func TestGenerateTruncatesOversizedContext(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		prompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "llama3.2:3b", nil)
	client.Generate(context.Background(), "q", strings.Repeat("c", 5000))

	if !strings.Contains(prompt, "[...truncated...]") {
		t.Fatalf("expected truncation marker in prompt")
	}
	if strings.Contains(prompt, strings.Repeat("c", maxContextChars+1)) {
		t.Fatalf("context not truncated to %d chars", maxContextChars)
	}
}

func TestGenerateSentinelOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model missing", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "llama3.2:3b", nil)
	answer := client.Generate(context.Background(), "q", "")
	if answer != "Error: Ollama returned status 404" {
		t.Fatalf("unexpected sentinel %q", answer)
	}
}

func TestGenerateSentinelOnConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := New(server.URL, "llama3.2:3b", nil)
	answer := client.Generate(context.Background(), "q", "")
	if answer != "Error: Cannot connect to Ollama." {
		t.Fatalf("unexpected sentinel %q", answer)
	}
}

func TestRerankUsesDeterministicOptions(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"response":"2,1"}`))
	}))
	defer server.Close()

	client := New(server.URL, "llama3.2:3b", nil)
	response, err := client.Rerank(context.Background(), "Rank these")
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if response != "2,1" {
		t.Fatalf("unexpected response %q", response)
	}
	options, _ := payload["options"].(map[string]any)
	if options["temperature"].(float64) != 0 || options["num_predict"].(float64) != 20 {
		t.Fatalf("unexpected rerank options %v", options)
	}
}

func TestRerankReturnsErrorOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "llama3.2:3b", nil)
	if _, err := client.Rerank(context.Background(), "Rank these"); err == nil {
		t.Fatalf("expected error on 503")
	}
}

func TestSupportsReranking(t *testing.T) {
	if !New("http://x", "llama3.2:3b", nil).SupportsReranking() {
		t.Fatalf("expected reranking support for llama3.2")
	}
	for _, model := range []string{"phi3:mini", "TinyLlama", "gemma2:2b-instruct"} {
		if New("http://x", model, nil).SupportsReranking() {
			t.Fatalf("expected reranking skipped for %s", model)
		}
	}
}
