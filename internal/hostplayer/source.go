// Package hostplayer specifies the interface a local media player
// integration must satisfy to drive the core, and provides a stub driver
// for demos and manual testing in place of a real player.
package hostplayer

import "sync"

// TrackStartedFunc is called with the host player's track-changed event.
type TrackStartedFunc func(path, title, artist, album, coverURL string)

// PlayStateFunc is called on Playing/Paused/Stopped transitions.
type PlayStateFunc func(state string)

// VolumeFunc is called with a 0..1 volume level.
type VolumeFunc func(level float64)

// SeekFunc is called on every position tick, in milliseconds.
type SeekFunc func(positionMS int64)

// Source is the external collaborator spec.md treats as out of scope: a
// local media player that emits the four events the core consumes.
type Source interface {
	OnTrackStarted(TrackStartedFunc)
	OnPlayState(PlayStateFunc)
	OnVolume(VolumeFunc)
	OnSeek(SeekFunc)
}

// StubSource is a Source a caller drives programmatically (a CLI, a test)
// instead of wiring a real media player.
type StubSource struct {
	mu             sync.Mutex
	onTrackStarted TrackStartedFunc
	onPlayState    PlayStateFunc
	onVolume       VolumeFunc
	onSeek         SeekFunc
}

// NewStubSource returns an unwired stub source.
func NewStubSource() *StubSource {
	return &StubSource{}
}

func (s *StubSource) OnTrackStarted(f TrackStartedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTrackStarted = f
}

func (s *StubSource) OnPlayState(f PlayStateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPlayState = f
}

func (s *StubSource) OnVolume(f VolumeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onVolume = f
}

func (s *StubSource) OnSeek(f SeekFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSeek = f
}

// EmitTrackStarted drives a track-started event, for demo/test use.
func (s *StubSource) EmitTrackStarted(path, title, artist, album, coverURL string) {
	s.mu.Lock()
	f := s.onTrackStarted
	s.mu.Unlock()
	if f != nil {
		f(path, title, artist, album, coverURL)
	}
}

// EmitPlayState drives a play-state event, for demo/test use.
func (s *StubSource) EmitPlayState(state string) {
	s.mu.Lock()
	f := s.onPlayState
	s.mu.Unlock()
	if f != nil {
		f(state)
	}
}

// EmitVolume drives a volume event, for demo/test use.
func (s *StubSource) EmitVolume(level float64) {
	s.mu.Lock()
	f := s.onVolume
	s.mu.Unlock()
	if f != nil {
		f(level)
	}
}

// EmitSeek drives a position tick, for demo/test use.
func (s *StubSource) EmitSeek(positionMS int64) {
	s.mu.Lock()
	f := s.onSeek
	s.mu.Unlock()
	if f != nil {
		f(positionMS)
	}
}
