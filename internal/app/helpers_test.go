package app

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, feedURL, telegramURL string) string {
	t.Helper()

	body := fmt.Sprintf(`
summarization:
  ollama:
    url: "http://127.0.0.1:1"
notifications:
  telegram:
    apiBase: %q
    botToken: "T"
    chatId: "1"
sources:
  - name: Test Feed
    type: rss
    url: %q
    tier: high
`, telegramURL, feedURL)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
