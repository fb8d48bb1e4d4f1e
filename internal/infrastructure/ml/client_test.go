package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ThreatDigest/internal/domain"
)

func TestClientSummarize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/summarize" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload["title"] != "Prompt injection" {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"summary":              " A summary. ",
			"why_it_matters":       "It matters.",
			"practical_mitigation": "Patch.",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "secret")
	got, err := client.Summarize(context.Background(), domain.Item{ID: "x", Title: "Prompt injection"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.Text != "A summary." || got.WhyItMatters != "It matters." || got.Mitigation != "Patch." {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestClientSummarizeStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := NewClient(server.URL, "").Summarize(context.Background(), domain.Item{}); err == nil {
		t.Fatalf("expected error on 503")
	}
}
