// Package transcoder runs an external subprocess that converts a
// non-native audio file into an MP3 the receiver can play, bounding how
// many such subprocesses may run at once.
package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/semaphore"
)

const stderrTailBytes = 4096

// argsFunc builds the subprocess argument list for converting src to dst.
type argsFunc func(src, dst string) []string

func ffmpegArgs(src, dst string) []string {
	return []string{"-y", "-i", src, "-vn", "-codec:a", "libmp3lame", "-b:a", "192k", dst}
}

// Transcoder bounds concurrent transcode subprocesses with a weighted
// semaphore - the worker-pool discipline spec.md §5 asks for around the
// transcoder, adapted from the corpus's drain coordinator.
type Transcoder struct {
	sem     *semaphore.Weighted
	cmdPath string
	args    argsFunc
}

// NewTranscoder constructs a transcoder that shells out to ffmpeg, allowing
// at most maxConcurrent simultaneous subprocesses.
func NewTranscoder(maxConcurrent int64) *Transcoder {
	return newTranscoder(maxConcurrent, "ffmpeg", ffmpegArgs)
}

func newTranscoder(maxConcurrent int64, cmdPath string, args argsFunc) *Transcoder {
	return &Transcoder{
		sem:     semaphore.NewWeighted(maxConcurrent),
		cmdPath: cmdPath,
		args:    args,
	}
}

// Transcode converts srcPath into an MP3 under scratchDir (created if
// absent) and returns its path. Blocks until a semaphore slot is free, then
// blocks on the subprocess; both are permitted suspension points per
// spec.md §5.
func (t *Transcoder) Transcode(ctx context.Context, srcPath, scratchDir string) (string, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("transcoder: acquire: %w", err)
	}
	defer t.sem.Release(1)

	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("transcoder: scratch dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	dstPath := filepath.Join(scratchDir, base+".mp3")

	cmd := exec.CommandContext(ctx, t.cmdPath, t.args(srcPath, dstPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		tail := stderr.String()
		if len(tail) > stderrTailBytes {
			tail = tail[len(tail)-stderrTailBytes:]
		}
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return "", &TranscodeError{SrcPath: srcPath, ExitCode: exitCode, StderrTail: tail, Err: err}
	}

	return dstPath, nil
}
