package mediaserver

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
)

const chunkSize = 64 * 1024

// mimeByExt is the HTTP Content-Type table from spec.md §6, distinct from
// castsession.MimeForURL's narrower LOAD-contentType table: this one covers
// every format the server might be asked to stream, including formats the
// receiver can't decode natively, and defaults to a generic octet stream
// rather than guessing audio/mpeg.
var mimeByExt = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".wma":  "audio/x-ms-wma",
	".ape":  "audio/x-ape",
	".wv":   "audio/x-wavpack",
}

func mimeForPath(path string) string {
	for ext, mime := range mimeByExt {
		if strings.HasSuffix(strings.ToLower(path), ext) {
			return mime
		}
	}
	return "application/octet-stream"
}

// handleMedia serves a registered file with manual Range support: 404 on a
// miss, 200 for a full-file GET, 206 for a byte-range GET. The response
// body is always streamed in 64 KiB chunks and the connection is always
// closed afterward (Connection: close), matching a minimal HTTP/1.0-style
// server rather than relying on net/http's keep-alive machinery.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Connection", "close")

	localPath, ok := s.registry.lookup(r.URL.Path)
	if !ok {
		w.Header().Set("Content-Length", "13")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "404 Not Found")
		return
	}

	f, err := os.Open(localPath)
	if err != nil {
		slog.Error("mediaserver: failed to open registered file", "path", r.URL.Path, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		slog.Error("mediaserver: failed to stat registered file", "path", r.URL.Path, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	size := info.Size()
	mime := mimeForPath(localPath)

	start, end, hasRange := parseRange(r.Header.Get("Range"), size)

	h := w.Header()
	h.Set("Content-Type", mime)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Access-Control-Allow-Origin", "*")

	if !hasRange {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		s.stream(w, f, r.URL.Path, size)
		return
	}

	h.Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(size, 10))
	h.Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		slog.Error("mediaserver: seek failed", "path", r.URL.Path, "error", err)
		return
	}
	s.stream(w, f, r.URL.Path, end-start+1)
}

func (s *Server) stream(w http.ResponseWriter, f *os.File, urlPath string, n int64) {
	buf := make([]byte, chunkSize)
	remaining := n
	for remaining > 0 {
		readLen := int64(chunkSize)
		if remaining < readLen {
			readLen = remaining
		}
		nRead, err := f.Read(buf[:readLen])
		if nRead > 0 {
			if _, werr := w.Write(buf[:nRead]); werr != nil {
				return
			}
			remaining -= int64(nRead)
		}
		if err != nil {
			if err != io.EOF {
				slog.Warn("mediaserver: read error mid-stream", "error", &HttpServeError{Path: urlPath, Err: err})
			}
			return
		}
	}
}

// parseRange parses a "bytes=START-END" header value, where either side is
// optional. Returns hasRange=false if the header is absent or malformed.
// A missing END (or END >= size) clamps to size-1; a missing START treats
// the range as starting at 0.
func parseRange(header string, size int64) (start, end int64, hasRange bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, false
	}
	spec := strings.TrimPrefix(header, prefix)
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	startStr, endStr := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	if startStr == "" {
		start = 0
	} else {
		v, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || v < 0 {
			return 0, 0, false
		}
		start = v
	}

	if endStr == "" || mustParseInt(endStr) >= size {
		end = size - 1
	} else {
		end = mustParseInt(endStr)
	}

	if start > end {
		return 0, 0, false
	}
	return start, end, true
}

// mustParseInt returns -1 on parse failure. A malformed END therefore
// becomes -1, which is below any START, so parseRange reports no range and
// the full file is served.
func mustParseInt(s string) int64 {
	if s == "" {
		return -1
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return v
}
