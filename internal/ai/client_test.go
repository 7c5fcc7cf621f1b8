package ai_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/myrjola/wodcoach/internal/ai"
	"github.com/myrjola/wodcoach/internal/testhelpers"
	"github.com/openai/openai-go/v3/option"
)

func TestIsPlaceholderKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		key  string
		want bool
	}{
		{key: "", want: true},
		{key: "   ", want: true},
		{key: "your_openai_api_key_here", want: true},
		{key: "YOUR_KEY", want: true},
		{key: "sk-proj-abc123", want: false},
	}
	for _, tt := range tests {
		if got := ai.IsPlaceholderKey(tt.key); got != tt.want {
			t.Errorf("IsPlaceholderKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"logprobs":      nil,
			"message":       map[string]any{"role": "assistant", "content": content, "refusal": nil},
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 34, "total_tokens": 46},
	})
	return string(body)
}

func TestClient_Generate(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	var gotPrompt atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(body, &req)
		if len(req.Messages) == 1 && req.Messages[0].Role == "user" {
			gotPrompt.Store(req.Model + ":" + req.Messages[0].Content)
		}
		switch {
		case strings.Contains(string(body), "fail please"):
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
		case strings.Contains(string(body), "say nothing"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, completion("  "))
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, completion(`{"name":"Fran"}`))
		}
	}))
	t.Cleanup(srv.Close)

	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	client := ai.NewClient("sk-test", "gpt-4o-mini", logger, option.WithBaseURL(srv.URL+"/"))

	got, err := client.Generate(t.Context(), "suggest a workout")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != `{"name":"Fran"}` {
		t.Errorf("Generate() = %q", got)
	}
	if p, _ := gotPrompt.Load().(string); p != "gpt-4o-mini:suggest a workout" {
		t.Errorf("request model and prompt = %q", p)
	}

	if _, err = client.Generate(t.Context(), "say nothing"); err == nil {
		t.Error("Generate() with blank content succeeded, want error")
	}

	before := requests.Load()
	if _, err = client.Generate(t.Context(), "fail please"); err == nil {
		t.Error("Generate() with server error succeeded, want error")
	}
	if n := requests.Load() - before; n != 1 {
		t.Errorf("server error caused %d requests, want 1 without retries", n)
	}
}

func TestClient_GenerateDisabled(t *testing.T) {
	t.Parallel()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	client := ai.NewClient("your_openai_api_key_here", "", logger)

	if client.Enabled() {
		t.Error("Enabled() = true for placeholder key")
	}
	if _, err := client.Generate(t.Context(), "anything"); !errors.Is(err, ai.ErrDisabled) {
		t.Errorf("Generate() error = %v, want ErrDisabled", err)
	}
}
