package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClientComplete(t *testing.T) {
	var gotBody map[string]any
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer ollama" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "llama3.2:latest",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Ciao! Come stai?  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`)
	})

	client, err := NewOpenAIClient(Config{BaseURL: srv.URL + "/v1/", APIKey: "ollama", Model: "llama3.2:latest", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewOpenAIClient returned error: %v", err)
	}

	got, err := client.Complete(context.Background(), "Say hi in Italian")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "Ciao! Come stai?" {
		t.Fatalf("unexpected reply %q", got)
	}
	if gotBody["model"] != "llama3.2:latest" {
		t.Fatalf("unexpected model in request: %v", gotBody["model"])
	}
	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected a single user message, got %v", gotBody["messages"])
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "Say hi in Italian" {
		t.Fatalf("unexpected message %v", first)
	}
}

func TestOpenAIClientMapsServerErrors(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": {"message": "model not loaded", "type": "server_error"}}`)
	})

	client, err := NewOpenAIClient(Config{BaseURL: srv.URL, APIKey: "x", Model: "m"})
	if err != nil {
		t.Fatalf("NewOpenAIClient returned error: %v", err)
	}
	_, err = client.Complete(context.Background(), "hi")
	var unavailable *ErrUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrUnavailable, got %T %v", err, err)
	}
	if unavailable.StatusCode != http.StatusInternalServerError || !unavailable.Temporary() {
		t.Fatalf("unexpected mapped error %+v", unavailable)
	}
}

func TestOpenAIClientEmptyChoices(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "x", "object": "chat.completion", "model": "m", "choices": []}`)
	})

	client, _ := NewOpenAIClient(Config{BaseURL: srv.URL, APIKey: "x", Model: "m"})
	if _, err := client.Complete(context.Background(), "hi"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNewOpenAIClientRequiresModel(t *testing.T) {
	if _, err := NewOpenAIClient(Config{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected error without a model")
	}
}
