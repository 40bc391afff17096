// Package outputadapter translates host player events into Cast
// session-machine calls, deciding whether a track can be served natively
// or needs transcoding first, and reports position back to the host from
// its own wall-clock estimate.
package outputadapter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sebas/castbridge/internal/castsession"
	"github.com/sebas/castbridge/internal/mediaserver"
	"github.com/sebas/castbridge/internal/transcoder"
)

// nativeExtensions is the set of formats the receiver plays directly;
// anything else is routed through the transcoder first.
var nativeExtensions = map[string]bool{
	"mp3": true, "aac": true, "m4a": true, "opus": true, "flac": true, "ogg": true, "wav": true,
}

// seekJumpThresholdMS is the largest gap between consecutive position
// reports that is still treated as ordinary playback progression; any
// larger gap is treated as a user-initiated seek.
const seekJumpThresholdMS = 1000

// Adapter owns a Cast session and a media server and drives both from host
// player events.
type Adapter struct {
	session        *castsession.Session
	media          *mediaserver.Server
	transcoder     *transcoder.Transcoder
	scratchBaseDir string

	clock *PositionClock

	mu                  sync.Mutex
	currentPath         string
	lastKnownPositionMS int64
}

// NewAdapter wires clock corrections to the session's position observer.
func NewAdapter(session *castsession.Session, media *mediaserver.Server, tc *transcoder.Transcoder, scratchBaseDir string) *Adapter {
	a := &Adapter{
		session:        session,
		media:          media,
		transcoder:     tc,
		scratchBaseDir: scratchBaseDir,
		clock:          NewPositionClock(),
	}
	session.OnPosition(a.clock.CorrectToward)
	return a
}

// OnTrackStarted registers (transcoding first if needed) and loads a new
// track. If a different track was already playing, it is stopped first.
func (a *Adapter) OnTrackStarted(ev TrackStarted) error {
	a.mu.Lock()
	previous := a.currentPath
	a.currentPath = ev.Path
	a.mu.Unlock()

	if previous != "" && previous != ev.Path {
		a.session.Stop()
	}

	servePath, err := a.resolveServePath(ev.Path)
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(servePath)
	if err != nil {
		return fmt.Errorf("outputadapter: %w", err)
	}

	url := a.media.Register(absPath)
	a.session.Play(url, ev.Title, ev.Artist, ev.Album, ev.CoverURL)
	a.clock.Start(0)
	return nil
}

func (a *Adapter) resolveServePath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if nativeExtensions[ext] {
		return path, nil
	}

	correlationID := uuid.NewString()
	scratchDir := filepath.Join(a.scratchBaseDir, correlationID)
	dst, err := a.transcoder.Transcode(context.Background(), path, scratchDir)
	if err != nil {
		slog.Error("outputadapter: transcode failed", "path", path, "correlation_id", correlationID, "error", err)
		return "", fmt.Errorf("outputadapter: %w", err)
	}
	slog.Info("outputadapter: transcoded", "path", path, "correlation_id", correlationID, "dst", dst)
	return dst, nil
}

// OnPlayState maps the host's transport state onto session Resume/Pause/
// Stop and mirrors it into the local position clock.
func (a *Adapter) OnPlayState(ev PlayState) {
	switch ev {
	case Playing:
		a.session.Resume()
		a.clock.Resume()
	case Paused:
		a.session.Pause()
		a.clock.Pause()
	case Stopped:
		a.session.Stop()
		a.clock.Pause()
	}
}

// OnVolume forwards a 0..1 host volume to the session's 0..100 SetVolume.
func (a *Adapter) OnVolume(ev Volume) {
	a.session.SetVolume(int(ev.Level * 100))
}

// OnSeek is driven by every host player position tick, not only discrete
// user seeks: a jump of more than seekJumpThresholdMS since the last tick
// is what distinguishes an actual seek from ordinary playback progress,
// per spec.md §4.4.
func (a *Adapter) OnSeek(ev Seek) {
	a.mu.Lock()
	last := a.lastKnownPositionMS
	a.lastKnownPositionMS = ev.PositionMS
	a.mu.Unlock()

	delta := ev.PositionMS - last
	if delta < 0 {
		delta = -delta
	}
	if delta <= seekJumpThresholdMS {
		return
	}

	seconds := float64(ev.PositionMS) / 1000.0
	a.session.Seek(seconds)
	a.clock.Rebase(seconds)
}

// CurrentPosition reports the adapter's own estimate of playback position,
// in seconds, for surfacing back to the host.
func (a *Adapter) CurrentPosition() float64 {
	return a.clock.Position()
}
