package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		texts []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("chat_id") != "42" || r.PostForm.Get("parse_mode") != "Markdown" {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		mu.Lock()
		texts = append(texts, r.PostForm.Get("text"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewNotifier(server.URL, "TOKEN", "42")
	if err := n.PublishDigest(context.Background(), "*Digest*\nline"); err != nil {
		t.Fatalf("PublishDigest: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(texts) != 1 || texts[0] != "*Digest*\nline" {
		t.Fatalf("unexpected messages: %q", texts)
	}
}

func TestPublishDigestErrors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "", "").PublishDigest(context.Background(), "x"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if err := NewNotifier(server.URL, "T", "1").PublishDigest(context.Background(), "x"); err == nil {
		t.Fatalf("expected error on 403")
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	text := "aaaa\nbbbb\ncccc"
	chunks := SplitMessage(text, 10)
	if len(chunks) != 2 || chunks[0] != "aaaa\nbbbb" || chunks[1] != "cccc" {
		t.Fatalf("unexpected chunks: %q", chunks)
	}

	long := strings.Repeat("x", 25)
	chunks = SplitMessage(long, 10)
	if len(chunks) != 3 || chunks[2] != "xxxxx" {
		t.Fatalf("unexpected hard split: %q", chunks)
	}

	if got := SplitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short message should be untouched: %q", got)
	}
}
