package mediaserver

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestServerStartRegisterAndFetch(t *testing.T) {
	content := []byte("some audio bytes, not really")
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	s := NewServer("127.0.0.1")
	port, err := s.Start(0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	url := s.Register(path)
	want := fmt.Sprintf("http://127.0.0.1:%d/media/", port)
	if !strings.HasPrefix(url, want) || !strings.HasSuffix(url, ".mp3") {
		t.Fatalf("Register url = %q, want prefix %q and .mp3 suffix", url, want)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(content) {
		t.Fatalf("body = %q, want %q", body, content)
	}
}

func TestServerStopClearsRegistrations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.wav")
	_ = os.WriteFile(path, []byte("x"), 0o644)

	s := NewServer("127.0.0.1")
	if _, err := s.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	urlPath := s.registry.register(path)
	if _, ok := s.registry.lookup(urlPath); !ok {
		t.Fatalf("expected registration to be present before Stop")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, ok := s.registry.lookup(urlPath); ok {
		t.Fatalf("expected registration to be cleared after Stop")
	}
}
