// ABOUTME: Tests for the OpenAI synthesis client
// ABOUTME: Uses an httptest server in place of the OpenAI API
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harper/persona/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewOpenAIClientWithConfig(&ClientConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1",
		Timeout:    time.Second,
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClientWithConfig() error = %v", err)
	}
	return client
}

func completion(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  DefaultChatModel,
		"choices": []map[string]interface{}{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	}
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(""); err == nil {
		t.Error("NewOpenAIClient(\"\") should fail")
	}
}

func TestSynthesizeReturnsRawText(t *testing.T) {
	var prompt string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 2 {
			prompt = req.Messages[1].Content
		}
		_ = json.NewEncoder(w).Encode(completion(`Here you go: {"overall_score": 8}`))
	}, 0)

	transcript := []models.TranscriptEntry{
		{Speaker: "coach", Text: "How was your week?"},
		{Speaker: "client", Text: "  I finally ran 5k.  "},
	}
	text, err := client.Synthesize(context.Background(), "c1", "s1", transcript)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if text != `Here you go: {"overall_score": 8}` {
		t.Errorf("Synthesize() = %q, want the unparsed completion", text)
	}
	if !strings.Contains(prompt, "client: I finally ran 5k.") {
		t.Errorf("prompt missing formatted transcript:\n%s", prompt)
	}
}

func TestSynthesizeRetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(completion("{}"))
	}, 3)

	text, err := client.Synthesize(context.Background(), "c1", "s1", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if text != "{}" {
		t.Errorf("Synthesize() = %q, want {}", text)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestSynthesizeGivesUp(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 1)

	if _, err := client.Synthesize(context.Background(), "c1", "s1", nil); err == nil {
		t.Fatal("Synthesize() should fail after exhausting retries")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestSynthesizeNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}, 0)

	if _, err := client.Synthesize(context.Background(), "c1", "s1", nil); err == nil {
		t.Error("Synthesize() with no choices should fail")
	}
}

func TestFormatTranscript(t *testing.T) {
	got := FormatTranscript([]models.TranscriptEntry{
		{Speaker: "coach", Text: "hi"},
		{Text: "hello"},
	})
	want := "coach: hi\nunknown: hello\n"
	if got != want {
		t.Errorf("FormatTranscript() = %q, want %q", got, want)
	}
}
