package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/signalnine/promptbench/internal/llm"
)

func newServer(t *testing.T, handler http.HandlerFunc) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return llm.NewClient(llm.ClientOpts{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "test-model"})
}

func TestGenerateSuccess(t *testing.T) {
	var got struct {
		Model       string        `json:"model"`
		Messages    []llm.Message `json:"messages"`
		Temperature float64       `json:"temperature"`
		TopP        float64       `json:"top_p"`
		MaxTokens   int           `json:"max_tokens"`
	}
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth header: got %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"model":"served","choices":[{"message":{"content":"#### 4"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	})

	resp, err := client.Generate(context.Background(),
		[]llm.Message{llm.User("Question: 2+2?")},
		llm.SamplingParams{Temperature: 0.1, TopP: 0.9, MaxTokens: 2048})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "#### 4" {
		t.Errorf("text: got %q", resp.Text)
	}
	if resp.Usage != llm.NewUsage(12, 3) || resp.Usage.TotalTokens != 15 {
		t.Errorf("usage: got %+v", resp.Usage)
	}
	if resp.Model != "served" {
		t.Errorf("model: got %q", resp.Model)
	}
	if got.Model != "test-model" || got.TopP != 0.9 || got.MaxTokens != 2048 {
		t.Errorf("request body: %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("messages: %+v", got.Messages)
	}
}

func TestGenerateErrorClasses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   llm.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, llm.KindRateLimited},
		{"server error", http.StatusBadGateway, `bad gateway`, llm.KindTransient},
		{"client error", http.StatusUnauthorized, `nope`, llm.KindTransient},
		{"not json", http.StatusOK, `<html>`, llm.KindMalformed},
		{"no choices", http.StatusOK, `{"choices":[],"usage":{"prompt_tokens":1,"completion_tokens":1}}`, llm.KindMalformed},
		{"no usage", http.StatusOK, `{"choices":[{"message":{"content":"hi"}}]}`, llm.KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := client.Generate(context.Background(), nil, llm.SamplingParams{})
			if err == nil {
				t.Fatal("expected error")
			}
			var se *llm.ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("expected *ServiceError, got %T", err)
			}
			if se.Kind != tt.want {
				t.Errorf("kind: got %s, want %s", se.Kind, tt.want)
			}
			if got := llm.Classify(err); got != tt.want {
				t.Errorf("Classify: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGenerateCanceled(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Generate(ctx, nil, llm.SamplingParams{})
	if llm.Classify(err) != llm.KindCanceled {
		t.Errorf("expected canceled, got %v", err)
	}
	if llm.IsRetriable(err) {
		t.Error("canceled call must not be retriable")
	}
}
