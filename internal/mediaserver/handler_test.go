package mediaserver

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestHandleMediaFullGet(t *testing.T) {
	content := bytes.Repeat([]byte("abcd"), 1000) // 4000 bytes
	path := writeTempFile(t, "song.mp3", content)

	s := NewServer("")
	urlPath := s.registry.register(path)

	req := httptest.NewRequest(http.MethodGet, urlPath, nil)
	rec := httptest.NewRecorder()
	s.handleMedia(rec, req)

	resp := rec.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Length"); got != "4000" {
		t.Errorf("Content-Length = %q, want 4000", got)
	}
	if got := resp.Header.Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q, want audio/mpeg", got)
	}
	if resp.Header.Get("Accept-Ranges") != "bytes" {
		t.Errorf("missing Accept-Ranges: bytes")
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, content) {
		t.Errorf("body mismatch: got %d bytes, want %d", len(body), len(content))
	}
}

func TestHandleMediaRangeRequest(t *testing.T) {
	content := make([]byte, 5*1024*1024) // 5 MiB
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := writeTempFile(t, "song.flac", content)

	s := NewServer("")
	urlPath := s.registry.register(path)

	req := httptest.NewRequest(http.MethodGet, urlPath, nil)
	req.Header.Set("Range", "bytes=1000000-1999999")
	rec := httptest.NewRecorder()
	s.handleMedia(rec, req)

	resp := rec.Result()
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", resp.StatusCode)
	}
	wantRange := "bytes 1000000-1999999/5242880"
	if got := resp.Header.Get("Content-Range"); got != wantRange {
		t.Errorf("Content-Range = %q, want %q", got, wantRange)
	}
	if got := resp.Header.Get("Content-Length"); got != "1000000" {
		t.Errorf("Content-Length = %q, want 1000000", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, content[1000000:2000000]) {
		t.Errorf("body mismatch for ranged request")
	}
}

func TestHandleMediaOpenEndedRange(t *testing.T) {
	content := bytes.Repeat([]byte{0xAB}, 1000)
	path := writeTempFile(t, "song.wav", content)

	s := NewServer("")
	urlPath := s.registry.register(path)

	req := httptest.NewRequest(http.MethodGet, urlPath, nil)
	req.Header.Set("Range", "bytes=500-")
	rec := httptest.NewRecorder()
	s.handleMedia(rec, req)

	resp := rec.Result()
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 500-999/1000" {
		t.Errorf("Content-Range = %q, want bytes 500-999/1000", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, content[500:]) {
		t.Errorf("body mismatch for open-ended range")
	}
}

func TestHandleMediaUnknownPath404(t *testing.T) {
	s := NewServer("")

	req := httptest.NewRequest(http.MethodGet, "/media/doesnotexist.mp3", nil)
	rec := httptest.NewRecorder()
	s.handleMedia(rec, req)

	resp := rec.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "404 Not Found" {
		t.Errorf("body = %q, want \"404 Not Found\"", body)
	}
	if got := resp.Header.Get("Content-Length"); got != "13" {
		t.Errorf("Content-Length = %q, want 13", got)
	}
}

func TestFileIDDeterministicAndStable(t *testing.T) {
	id1 := fileID("/abs/path/to/file.mp3")
	id2 := fileID("/abs/path/to/file.mp3")
	if id1 != id2 {
		t.Fatalf("fileID not deterministic: %q vs %q", id1, id2)
	}
	if len(id1) != 16 {
		t.Fatalf("fileID length = %d, want 16", len(id1))
	}
	if other := fileID("/abs/path/to/other.mp3"); other == id1 {
		t.Fatalf("fileID collided for distinct paths")
	}
}

