package transcoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTranscodeSuccessProducesDstFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.ape")
	if err := os.WriteFile(src, []byte("fake audio bytes"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	tc := newTranscoder(2, "sh", func(src, dst string) []string {
		return []string{"-c", "cp " + src + " " + dst}
	})

	scratch := filepath.Join(dir, "scratch")
	dst, err := tc.Transcode(context.Background(), src, scratch)
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if filepath.Ext(dst) != ".mp3" {
		t.Fatalf("dst = %q, want .mp3 extension", dst)
	}
	content, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(content) != "fake audio bytes" {
		t.Fatalf("dst content = %q, want copied source bytes", content)
	}
}

func TestTranscodeFailureReturnsTranscodeError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.ape")
	_ = os.WriteFile(src, []byte("x"), 0o644)

	tc := newTranscoder(2, "sh", func(src, dst string) []string {
		return []string{"-c", "echo boom 1>&2; exit 7"}
	})

	_, err := tc.Transcode(context.Background(), src, filepath.Join(dir, "scratch"))
	if err == nil {
		t.Fatal("expected an error")
	}
	var te *TranscodeError
	if !errors.As(err, &te) {
		t.Fatalf("error type = %T, want *TranscodeError", err)
	}
	if te.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", te.ExitCode)
	}
	if te.StderrTail == "" {
		t.Errorf("expected a non-empty stderr tail")
	}
}

func TestTranscodeCreatesScratchDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.ape")
	_ = os.WriteFile(src, []byte("x"), 0o644)

	scratch := filepath.Join(dir, "does", "not", "exist", "yet")
	tc := newTranscoder(1, "sh", func(src, dst string) []string {
		return []string{"-c", "cp " + src + " " + dst}
	})

	if _, err := tc.Transcode(context.Background(), src, scratch); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if info, err := os.Stat(scratch); err != nil || !info.IsDir() {
		t.Fatalf("expected scratch dir to be created: %v", err)
	}
}
