package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docport/internal/domain"
)

func newTestGenerator(t *testing.T, url string) *OpenAIGenerator {
	t.Helper()
	t.Setenv("TEST_CHAT_KEY", "sk-test")

	g, err := NewOpenAIGenerator(Settings{
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		BaseURL:   url,
		APIKeyEnv: "TEST_CHAT_KEY",
		MaxTokens: 256,
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGenerateWithSystemSendsBothRoles(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request: %v", err)
		}
		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message ChatMessage `json:"message"`
		}{Message: ChatMessage{Role: "assistant", Content: "grounded answer"}})
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL)
	out, err := g.GenerateWithSystem(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatal(err)
	}
	if out != "grounded answer" {
		t.Errorf("output = %q", out)
	}

	if len(got.Messages) != 2 {
		t.Fatalf("sent %d messages, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "system text" {
		t.Errorf("first message = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != "user text" {
		t.Errorf("second message = %+v", got.Messages[1])
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", got.Model)
	}
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Generate(ctx, "question")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL)
	if _, err := g.Generate(context.Background(), "q"); err == nil {
		t.Fatal("expected API error to surface")
	}
}

func TestNewOpenAIGeneratorUnknownProvider(t *testing.T) {
	_, err := NewOpenAIGenerator(Settings{Provider: "nonsense"})
	if err == nil {
		t.Fatal("expected error for unknown provider without base URL")
	}
}

func TestMockGeneratorScript(t *testing.T) {
	m := NewMockGenerator("first", "second")

	out, err := m.Generate(context.Background(), "p1")
	if err != nil || out != "first" {
		t.Fatalf("call 1 = %q, %v", out, err)
	}
	out, _ = m.Generate(context.Background(), "p2")
	if out != "second" {
		t.Fatalf("call 2 = %q", out)
	}
	// Script exhausted, last reply repeats.
	out, _ = m.Generate(context.Background(), "p3")
	if out != "second" {
		t.Fatalf("call 3 = %q", out)
	}

	if len(m.Calls) != 3 {
		t.Errorf("recorded %d calls", len(m.Calls))
	}
}
