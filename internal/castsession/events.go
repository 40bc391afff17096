package castsession

import "sync"

// observerList is a typed, mutex-guarded subscriber list. It replaces
// signal/slot fan-out with an explicit list the owner invokes directly -
// no implicit global dispatcher - and callbacks run synchronously on the
// calling goroutine so delivery order matches the order the triggering
// events were consumed in.
type observerList[F any] struct {
	mu   sync.Mutex
	subs []F
}

func (o *observerList[F]) Add(f F) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subs = append(o.subs, f)
}

func (o *observerList[F]) snapshot() []F {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]F, len(o.subs))
	copy(out, o.subs)
	return out
}

type (
	ConnectionStateFunc func(ConnectionState)
	PlaybackStateFunc   func(PlaybackState)
	VolumeFunc          func(level int)
	PositionFunc        func(seconds float64)
	ErrorFunc           func(err error)
)

// OnConnectionState registers a callback fired on every connection-state
// transition.
func (s *Session) OnConnectionState(f ConnectionStateFunc) { s.connStateObservers.Add(f) }

// OnPlaybackState registers a callback fired on every playback-state
// transition.
func (s *Session) OnPlaybackState(f PlaybackStateFunc) { s.playbackObservers.Add(f) }

// OnVolume registers a callback fired optimistically on every SetVolume
// send. Volume reported by the receiver does not fire it.
func (s *Session) OnVolume(f VolumeFunc) { s.volumeObservers.Add(f) }

// OnPosition registers a callback fired on inbound MEDIA_STATUS
// currentTime updates.
func (s *Session) OnPosition(f PositionFunc) { s.positionObservers.Add(f) }

// OnError registers a callback fired on session errors.
func (s *Session) OnError(f ErrorFunc) { s.errorObservers.Add(f) }

func (s *Session) emitConnectionState(st ConnectionState) {
	for _, f := range s.connStateObservers.snapshot() {
		f(st)
	}
}

func (s *Session) emitPlaybackState(st PlaybackState) {
	for _, f := range s.playbackObservers.snapshot() {
		f(st)
	}
}

func (s *Session) emitVolume(level int) {
	for _, f := range s.volumeObservers.snapshot() {
		f(level)
	}
}

func (s *Session) emitPosition(seconds float64) {
	for _, f := range s.positionObservers.snapshot() {
		f(seconds)
	}
}

func (s *Session) emitError(err error) {
	for _, f := range s.errorObservers.snapshot() {
		f(err)
	}
}
