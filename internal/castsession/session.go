package castsession

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sebas/castbridge/internal/castwire"
)

const (
	connectTimeout    = 10 * time.Second
	heartbeatInterval = 5 * time.Second
	pollInterval      = 1 * time.Second
)

// Session drives the Cast connection handshake, app launch, heartbeat, and
// media load/play/pause/stop/seek/volume for a single receiver, and routes
// inbound messages by namespace. It owns its own framed TLS channel.
//
// All state mutation happens on a single goroutine (run), so handlers never
// race each other - the Go analogue of the single-threaded event-driven
// core in spec.md 5. Public methods enqueue a command rather than mutating
// state directly; observer callbacks fire from that same goroutine, in the
// order their triggering events were consumed.
type Session struct {
	channel *castwire.Channel

	cmds chan func()
	done chan struct{}

	connState      ConnectionState
	playbackState  PlaybackState
	device         Device
	sessionID      string
	transportID    string
	mediaSessionID int
	pending        *PendingMedia

	reqID requestIDCounter

	dialCancel context.CancelFunc

	connectTimer    *time.Timer
	heartbeatTicker *time.Ticker
	heartbeatStop   chan struct{}
	pollTicker      *time.Ticker
	pollStop        chan struct{}

	connStateObservers observerList[ConnectionStateFunc]
	playbackObservers  observerList[PlaybackStateFunc]
	volumeObservers    observerList[VolumeFunc]
	positionObservers  observerList[PositionFunc]
	errorObservers     observerList[ErrorFunc]
}

// NewSession constructs a session in the Disconnected state and starts its
// event loop. No timers exist yet: the connect timer, heartbeat ticker and
// poll ticker are each created when armed and discarded when stopped.
func NewSession() *Session {
	s := &Session{
		cmds:     make(chan func(), 64),
		done:     make(chan struct{}),
		connState: Disconnected,
		playbackState: Idle,
	}
	s.channel = castwire.NewChannel(
		func() { s.enqueue(s.handleChannelConnected) },
		func() { s.enqueue(s.handleChannelDisconnected) },
		func(m *castwire.Message) { s.enqueue(func() { s.handleInboundFrame(m) }) },
		func(err error) { s.enqueue(func() { s.handleChannelError(err) }) },
	)
	go s.run()
	return s
}

func (s *Session) run() {
	for {
		select {
		case cmd := <-s.cmds:
			cmd()
		case <-s.done:
			return
		}
	}
}

func (s *Session) enqueue(cmd func()) {
	select {
	case s.cmds <- cmd:
	case <-s.done:
	}
}

// ConnectTo begins connecting if currently Disconnected; otherwise it is a
// no-op with a logged warning.
func (s *Session) ConnectTo(device Device) {
	s.enqueue(func() {
		if s.connState != Disconnected {
			slog.Warn("castsession: connect_to called while not Disconnected", "state", s.connState)
			return
		}

		s.device = device
		s.setConnState(Connecting)

		ctx, cancel := context.WithCancel(context.Background())
		s.dialCancel = cancel
		s.armConnectTimer()
		s.channel.Connect(ctx, device.IP, device.Port)
	})
}

func (s *Session) armConnectTimer() {
	s.connectTimer = time.AfterFunc(connectTimeout, func() {
		s.enqueue(func() {
			if s.connState == Connecting {
				slog.Warn("castsession: connect timeout", "device", s.device.ID)
				s.channel.Close()
				s.setConnState(ConnError)
				s.emitError(&SessionError{Kind: KindConnectTimeout})
			}
		})
	})
}

func (s *Session) disarmConnectTimer() {
	if s.connectTimer != nil {
		s.connectTimer.Stop()
		s.connectTimer = nil
	}
}

// Disconnect sends CLOSE to both receiver-0 and the app session (if any),
// stops all timers, and moves to Disconnected.
func (s *Session) Disconnect() {
	s.enqueue(func() {
		if s.connState == Disconnected {
			return
		}

		s.setConnState(Disconnecting)
		s.stopHeartbeat()
		s.stopPolling()
		s.disarmConnectTimer()
		if s.dialCancel != nil {
			s.dialCancel()
		}

		if s.channel.Connected() {
			if payload, err := buildClose(); err == nil {
				s.channel.Send(&castwire.Message{
					SourceID: sourceID, DestinationID: receiverID,
					Namespace: NamespaceConnection, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
				})
			}
			if s.sessionID != "" {
				if payload, err := buildClose(); err == nil {
					s.channel.Send(&castwire.Message{
						SourceID: sourceID, DestinationID: s.sessionID,
						Namespace: NamespaceConnection, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
					})
				}
			}
		}

		s.channel.Close()
		s.sessionID = ""
		s.transportID = ""
		s.mediaSessionID = 0
		s.setConnState(Disconnected)
		s.setPlaybackState(Idle)
	})
}

// Play loads media. If the session is not yet Connected, the request is
// stored as PendingMedia and replayed once Connected is reached; a second
// pre-connect Play replaces the pending slot.
func (s *Session) Play(url, title, artist, album, coverURL string) {
	s.enqueue(func() {
		if s.connState != Connected {
			s.pending = &PendingMedia{URL: url, Title: title, Artist: artist, Album: album, CoverURL: coverURL}
			return
		}
		s.sendLoad(url, title, artist, album, coverURL)
	})
}

func (s *Session) sendLoad(url, title, artist, album, coverURL string) {
	if s.sessionID == "" || s.transportID == "" {
		slog.Warn("castsession: dropping LOAD, no session established")
		s.emitError(&SessionError{Kind: KindMediaError, Err: ErrSessionNotReady})
		return
	}
	payload, err := buildLoad(s.reqID.Next(), url, title, artist, album, coverURL)
	if err != nil {
		slog.Error("castsession: failed to build LOAD payload", "error", err)
		return
	}
	s.channel.Send(&castwire.Message{
		SourceID: sourceID, DestinationID: s.transportID,
		Namespace: NamespaceMedia, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
	})
	s.setPlaybackState(Loading)
	s.startPolling()
}

// Resume sends PLAY for the current media session, resuming playback after
// a Pause.
func (s *Session) Resume() {
	s.enqueue(func() {
		if !s.requireMediaSession("PLAY") {
			return
		}
		payload, err := buildPlay(s.reqID.Next(), s.mediaSessionID)
		if err != nil {
			slog.Error("castsession: failed to build PLAY payload", "error", err)
			return
		}
		s.sendMediaMessage(payload)
	})
}

// Pause sends PAUSE for the current media session.
func (s *Session) Pause() {
	s.enqueue(func() {
		if !s.requireMediaSession("PAUSE") {
			return
		}
		payload, err := buildPause(s.reqID.Next(), s.mediaSessionID)
		if err != nil {
			slog.Error("castsession: failed to build PAUSE payload", "error", err)
			return
		}
		s.sendMediaMessage(payload)
	})
}

// Stop sends STOP for the current media session and stops status polling.
func (s *Session) Stop() {
	s.enqueue(func() {
		if !s.requireMediaSession("STOP") {
			return
		}
		payload, err := buildStop(s.reqID.Next(), s.mediaSessionID)
		if err != nil {
			slog.Error("castsession: failed to build STOP payload", "error", err)
			return
		}
		s.sendMediaMessage(payload)
		s.setPlaybackState(Stopped)
		s.stopPolling()
	})
}

// Seek sends SEEK to the given position, in seconds.
func (s *Session) Seek(seconds float64) {
	s.enqueue(func() {
		if !s.requireMediaSession("SEEK") {
			return
		}
		payload, err := buildSeek(s.reqID.Next(), s.mediaSessionID, seconds)
		if err != nil {
			slog.Error("castsession: failed to build SEEK payload", "error", err)
			return
		}
		s.sendMediaMessage(payload)
	})
}

// SetVolume clamps p to 0..100 and sends SET_VOLUME with level = p/100.0.
// on_volume(p) fires optimistically on send, independent of delivery.
func (s *Session) SetVolume(p int) {
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	s.enqueue(func() {
		payload, err := buildSetVolume(s.reqID.Next(), float64(p)/100.0)
		if err != nil {
			slog.Error("castsession: failed to build SET_VOLUME payload", "error", err)
			return
		}
		s.channel.Send(&castwire.Message{
			SourceID: sourceID, DestinationID: receiverID,
			Namespace: NamespaceReceiver, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
		})
		s.emitVolume(p)
	})
}

func (s *Session) requireMediaSession(op string) bool {
	if s.sessionID == "" || s.transportID == "" {
		slog.Warn("castsession: dropping media command, no session established", "op", op)
		s.emitError(&SessionError{Kind: KindMediaError, Err: ErrSessionNotReady})
		return false
	}
	if s.mediaSessionID == 0 {
		slog.Warn("castsession: dropping media command, no media_session_id", "op", op)
		s.emitError(&SessionError{Kind: KindMediaError, Err: ErrNoMediaSession})
		return false
	}
	return true
}

func (s *Session) sendMediaMessage(payload string) {
	s.channel.Send(&castwire.Message{
		SourceID: sourceID, DestinationID: s.transportID,
		Namespace: NamespaceMedia, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
	})
}

func (s *Session) setConnState(next ConnectionState) {
	if !s.connState.CanTransitionTo(next) {
		slog.Warn("castsession: rejected invalid connection state transition", "from", s.connState, "to", next)
		return
	}
	s.connState = next
	s.emitConnectionState(next)
}

func (s *Session) setPlaybackState(next PlaybackState) {
	s.playbackState = next
	s.emitPlaybackState(next)
}

// --- channel callbacks ---

func (s *Session) handleChannelConnected() {
	s.disarmConnectTimer()

	if payload, err := buildConnect(); err == nil {
		s.channel.Send(&castwire.Message{
			SourceID: sourceID, DestinationID: receiverID,
			Namespace: NamespaceConnection, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
		})
	}
	s.startHeartbeat()

	if payload, err := buildReceiverGetStatus(s.reqID.Next()); err == nil {
		s.channel.Send(&castwire.Message{
			SourceID: sourceID, DestinationID: receiverID,
			Namespace: NamespaceReceiver, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
		})
	}
}

func (s *Session) handleChannelDisconnected() {
	// A single socket error fires both onError (-> handleChannelError,
	// already landed on ConnError) and this callback from the same
	// teardown. ConnError is terminal from the caller's perspective until
	// they reconnect or explicitly Disconnect(); this redundant callback
	// must not silently downgrade it back to Disconnected.
	if s.connState == Disconnected || s.connState == ConnError {
		return
	}
	s.stopHeartbeat()
	s.stopPolling()
	s.disarmConnectTimer()
	s.sessionID = ""
	s.transportID = ""
	s.mediaSessionID = 0
	s.setConnState(Disconnecting)
	s.setConnState(Disconnected)
	s.setPlaybackState(Idle)
}

func (s *Session) handleChannelError(err error) {
	if s.connState == Disconnected {
		return
	}
	s.stopHeartbeat()
	s.stopPolling()
	s.disarmConnectTimer()
	s.setConnState(ConnError)
	s.emitError(&SessionError{Kind: KindTransportError, Err: err})
}

// --- inbound routing ---

func (s *Session) handleInboundFrame(m *castwire.Message) {
	switch m.Namespace {
	case NamespaceConnection:
		// CONNECT/CLOSE from the receiver carry no actionable payload here.
	case NamespaceHeartbeat:
		s.handleHeartbeat(m)
	case NamespaceReceiver:
		s.handleReceiver(m)
	case NamespaceMedia:
		s.handleMedia(m)
	default:
		slog.Warn("castsession: inbound frame on unknown namespace", "namespace", m.Namespace)
	}
}

func (s *Session) handleHeartbeat(m *castwire.Message) {
	var env inboundEnvelope
	if err := json.Unmarshal([]byte(m.PayloadUTF8), &env); err != nil {
		slog.Warn("castsession: malformed heartbeat payload", "error", err)
		return
	}
	if env.Type == "PING" {
		if payload, err := buildPong(); err == nil {
			s.channel.Send(&castwire.Message{
				SourceID: sourceID, DestinationID: m.SourceID,
				Namespace: NamespaceHeartbeat, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
			})
		}
	}
}

func (s *Session) handleReceiver(m *castwire.Message) {
	var status receiverStatusPayload
	if err := json.Unmarshal([]byte(m.PayloadUTF8), &status); err != nil {
		slog.Warn("castsession: malformed RECEIVER_STATUS payload", "error", err)
		return
	}
	if status.Type != "RECEIVER_STATUS" {
		return
	}

	var defaultApp *struct {
		AppID       string `json:"appId"`
		SessionID   string `json:"sessionId"`
		TransportID string `json:"transportId"`
	}
	for i := range status.Status.Applications {
		app := &status.Status.Applications[i]
		if app.AppID == DefaultMediaReceiverAppID {
			defaultApp = app
			break
		}
	}

	if defaultApp == nil {
		for i := range status.Status.Applications {
			if status.Status.Applications[i].AppID == idleBackdropAppID {
				slog.Debug("castsession: receiver is showing the idle backdrop, launching media receiver")
				break
			}
		}
		if s.connState == Connecting {
			if payload, err := buildLaunch(s.reqID.Next(), DefaultMediaReceiverAppID); err == nil {
				s.channel.Send(&castwire.Message{
					SourceID: sourceID, DestinationID: receiverID,
					Namespace: NamespaceReceiver, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
				})
			}
		}
		return
	}

	// The default media receiver is running: record (or re-record) its
	// session/transport IDs every time RECEIVER_STATUS reports it, even if
	// we were already Connected. The receiver can reassign transport IDs
	// across reconnects within the same app session, so every status
	// message is treated as authoritative, not just the first one.
	s.sessionID = defaultApp.SessionID
	s.transportID = defaultApp.TransportID

	if s.connState != Connecting {
		return
	}

	if payload, err := buildConnect(); err == nil {
		s.channel.Send(&castwire.Message{
			SourceID: sourceID, DestinationID: s.sessionID,
			Namespace: NamespaceConnection, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
		})
	}
	if payload, err := buildMediaGetStatus(s.reqID.Next()); err == nil {
		s.channel.Send(&castwire.Message{
			SourceID: sourceID, DestinationID: s.transportID,
			Namespace: NamespaceMedia, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
		})
	}
	s.setConnState(Connected)

	if s.pending != nil {
		p := s.pending
		s.pending = nil
		s.sendLoad(p.URL, p.Title, p.Artist, p.Album, p.CoverURL)
	}
}

func (s *Session) handleMedia(m *castwire.Message) {
	var env inboundEnvelope
	if err := json.Unmarshal([]byte(m.PayloadUTF8), &env); err != nil {
		slog.Warn("castsession: malformed media payload", "error", err)
		return
	}

	switch env.Type {
	case "MEDIA_STATUS":
		var status mediaStatusPayload
		if err := json.Unmarshal([]byte(m.PayloadUTF8), &status); err != nil {
			slog.Warn("castsession: malformed MEDIA_STATUS payload", "error", err)
			return
		}
		for _, entry := range status.Status {
			if entry.MediaSessionID != 0 {
				s.mediaSessionID = entry.MediaSessionID
			}
			if ps, ok := playerStateFromWire(entry.PlayerState); ok {
				s.setPlaybackState(ps)
			}
			s.emitPosition(entry.CurrentTime)
		}
	case "LOAD_FAILED", "LOAD_CANCELLED", "INVALID_REQUEST":
		slog.Warn("castsession: media error response", "type", env.Type, "payload", m.PayloadUTF8)
		s.emitError(&SessionError{Kind: KindMediaError})
	default:
		slog.Debug("castsession: unhandled media message", "type", env.Type)
	}
}

// --- timers ---

func (s *Session) startHeartbeat() {
	s.heartbeatTicker = time.NewTicker(heartbeatInterval)
	s.heartbeatStop = make(chan struct{})
	ticker := s.heartbeatTicker
	stop := s.heartbeatStop
	go func() {
		for {
			select {
			case <-ticker.C:
				s.enqueue(s.sendHeartbeatPing)
			case <-stop:
				return
			}
		}
	}()
}

func (s *Session) sendHeartbeatPing() {
	if payload, err := buildPing(); err == nil {
		s.channel.Send(&castwire.Message{
			SourceID: sourceID, DestinationID: receiverID,
			Namespace: NamespaceHeartbeat, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
		})
	}
}

func (s *Session) stopHeartbeat() {
	if s.heartbeatTicker != nil {
		s.heartbeatTicker.Stop()
		close(s.heartbeatStop)
		s.heartbeatTicker = nil
		s.heartbeatStop = nil
	}
}

func (s *Session) startPolling() {
	if s.pollTicker != nil {
		return
	}
	s.pollTicker = time.NewTicker(pollInterval)
	s.pollStop = make(chan struct{})
	ticker := s.pollTicker
	stop := s.pollStop
	go func() {
		for {
			select {
			case <-ticker.C:
				s.enqueue(s.sendMediaPoll)
			case <-stop:
				return
			}
		}
	}()
}

func (s *Session) sendMediaPoll() {
	if s.transportID == "" {
		return
	}
	if payload, err := buildMediaGetStatus(s.reqID.Next()); err == nil {
		s.channel.Send(&castwire.Message{
			SourceID: sourceID, DestinationID: s.transportID,
			Namespace: NamespaceMedia, PayloadType: castwire.PayloadTypeString, PayloadUTF8: payload,
		})
	}
}

func (s *Session) stopPolling() {
	if s.pollTicker != nil {
		s.pollTicker.Stop()
		close(s.pollStop)
		s.pollTicker = nil
		s.pollStop = nil
	}
}

// Close permanently shuts down the session's event loop. Use Disconnect
// for a normal teardown that may be followed by reconnection; Close is for
// process shutdown.
func (s *Session) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// ConnectionState returns the current connection state. Safe to call from
// any goroutine: it enqueues a read and blocks for the result.
func (s *Session) ConnectionState() ConnectionState {
	result := make(chan ConnectionState, 1)
	s.enqueue(func() { result <- s.connState })
	select {
	case v := <-result:
		return v
	case <-s.done:
		return Disconnected
	}
}

// PlaybackStateNow returns the current playback state synchronously.
func (s *Session) PlaybackStateNow() PlaybackState {
	result := make(chan PlaybackState, 1)
	s.enqueue(func() { result <- s.playbackState })
	select {
	case v := <-result:
		return v
	case <-s.done:
		return Idle
	}
}
