package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"exec-sim/server/internal/config"
)

func TestOpenAIClientComplete(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"primary\":\"confident\"}"}}]}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.LLMProviderConfig{
		APIURL: ts.URL,
		APIKey: "dummy",
		Model:  "gpt-4o-mini",
	}, 5*time.Second)

	schema := &JSONSchema{
		Name:   "message_analysis",
		Schema: map[string]any{"type": "object"},
		Strict: true,
	}
	res, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "analiza el mensaje"},
		{Role: "user", Content: "Propongo $5M por el 30%"},
	}, schema)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if res != `{"primary":"confident"}` {
		t.Fatalf("unexpected response: %s", res)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer dummy" {
		t.Fatalf("unexpected authorization header: %s", gotAuth)
	}
	if _, ok := gotBody["response_format"]; !ok {
		t.Fatalf("expected response_format in request body, got: %v", gotBody)
	}
}

func TestOpenAIClientAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.LLMProviderConfig{APIURL: ts.URL, APIKey: "dummy", Model: "gpt-4o-mini"}, 5*time.Second)

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "test"}}, nil)
	if err == nil {
		t.Fatal("expected error on non-200 status")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status code in error, got: %v", err)
	}
}

func TestOpenAIClientEmptyContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.LLMProviderConfig{APIURL: ts.URL, APIKey: "dummy", Model: "gpt-4o-mini"}, 5*time.Second)

	if _, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "test"}}, nil); err == nil {
		t.Fatal("expected error on empty content")
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	var gotPath, gotAPIKey, gotVersion string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"respuesta"}]}`))
	}))
	defer ts.Close()

	client := NewAnthropicClient(config.LLMProviderConfig{
		APIURL: ts.URL,
		APIKey: "dummy",
		Model:  "claude-sonnet-4-20250514",
	}, 5*time.Second)

	res, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "analiza el mensaje"},
		{Role: "user", Content: "hola"},
	}, nil)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if res != "respuesta" {
		t.Fatalf("unexpected response: %s", res)
	}
	if gotPath != "/messages" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAPIKey != "dummy" || gotVersion != "2023-06-01" {
		t.Fatalf("unexpected headers: key=%s version=%s", gotAPIKey, gotVersion)
	}
	// system message 必须从 messages 拆出来放到顶层 system 字段
	if gotBody["system"] != "analiza el mensaje" {
		t.Fatalf("expected system field, got: %v", gotBody["system"])
	}
	msgs, ok := gotBody["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("expected 1 non-system message, got: %v", gotBody["messages"])
	}
}

func TestNewClientUnsupportedProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = "cohere"
	if _, err := NewClient(cfg, time.Second); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}
