package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ThreatDigest/internal/config"
	"ThreatDigest/internal/logging"
)

const feedBody = `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item>
    <title>Prompt injection in agent tool calling</title>
    <link>https://feed.example/post-1</link>
    <description>A critical prompt injection lets an agent exfiltrate data; a patch and mitigation guide are available.</description>
  </item>
</channel></rss>`

func TestApplicationRunPublishesToTelegram(t *testing.T) {
	t.Parallel()

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer feed.Close()

	sent := make(chan string, 1)
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		sent <- r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer tg.Close()

	cfg, err := config.LoadFile(writeTestConfig(t, feed.URL, tg.URL))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	application, err := New(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer application.Close()

	if err := application.Run(context.Background(), ""); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case msg := <-sent:
		if msg == "" {
			t.Fatalf("empty digest message")
		}
	default:
		t.Fatalf("no digest was published")
	}
}

func TestNewRejectsInvalidCron(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFile(writeTestConfig(t, "http://127.0.0.1:1", ""))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg.Scheduler.CronExpression = "every tuesday"
	if _, err := New(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatalf("expected cron validation error")
	}
}
