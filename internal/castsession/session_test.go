package castsession

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/sebas/castbridge/internal/castwire"
)

// selfSignedCert generates a throwaway TLS certificate, standing in for a
// receiver's factory self-signed cert (which the channel accepts via
// InsecureSkipVerify).
func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "fake-receiver"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

// fakeReceiver is a minimal scripted Cast receiver used to drive Session
// through connect, LOAD and MEDIA_STATUS without a real device. It always
// reports CC1AD845 as already running, so LAUNCH is never requested.
type fakeReceiver struct {
	ln   net.Listener
	t    *testing.T
	gotLoad chan struct{}
}

func startFakeReceiver(t *testing.T) *fakeReceiver {
	t.Helper()
	cert := selfSignedCert(t)
	ln, err := tls.Listen("tcp4", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fr := &fakeReceiver{ln: ln, t: t, gotLoad: make(chan struct{}, 1)}
	go fr.serve()
	return fr
}

func (fr *fakeReceiver) serve() {
	conn, err := fr.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	send := func(ns, destinationID string, payload any) {
		b, _ := json.Marshal(payload)
		msg := &castwire.Message{
			SourceID: "receiver-0", DestinationID: destinationID,
			Namespace: ns, PayloadType: castwire.PayloadTypeString, PayloadUTF8: string(b),
		}
		_, _ = conn.Write(castwire.EncodeFrame(msg))
	}

	var decoder castwire.Decoder
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		msgs, _ := decoder.Feed(buf[:n])
		for _, m := range msgs {
			var env inboundEnvelope
			_ = json.Unmarshal([]byte(m.PayloadUTF8), &env)

			switch {
			case m.Namespace == NamespaceHeartbeat && env.Type == "PING":
				send(NamespaceHeartbeat, m.SourceID, map[string]string{"type": "PONG"})
			case m.Namespace == NamespaceReceiver && env.Type == "GET_STATUS":
				send(NamespaceReceiver, m.SourceID, map[string]any{
					"type": "RECEIVER_STATUS",
					"status": map[string]any{
						"applications": []map[string]string{
							{"appId": DefaultMediaReceiverAppID, "sessionId": "session-1", "transportId": "transport-1"},
						},
					},
				})
			case m.Namespace == NamespaceMedia && env.Type == "LOAD":
				select {
				case fr.gotLoad <- struct{}{}:
				default:
				}
				send(NamespaceMedia, m.SourceID, map[string]any{
					"type": "MEDIA_STATUS",
					"status": []map[string]any{
						{"mediaSessionId": 42, "playerState": "PLAYING", "currentTime": 0.0},
					},
				})
			}
		}
	}
}

func (fr *fakeReceiver) addr() (string, int) {
	tcpAddr := fr.ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", tcpAddr.Port
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestSessionConnectLoadAndMediaStatus(t *testing.T) {
	fr := startFakeReceiver(t)
	defer fr.ln.Close()

	session := NewSession()
	defer session.Close()

	connected := make(chan struct{}, 1)
	session.OnConnectionState(func(s ConnectionState) {
		if s == Connected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	playing := make(chan struct{}, 1)
	session.OnPlaybackState(func(s PlaybackState) {
		if s == Playing {
			select {
			case playing <- struct{}{}:
			default:
			}
		}
	})

	host, port := fr.addr()
	session.ConnectTo(Device{ID: DeviceID(host, port), IP: host, Port: port})

	waitFor(t, connected, "Connected state")
	if got := session.ConnectionState(); got != Connected {
		t.Fatalf("ConnectionState() = %s, want Connected", got)
	}

	session.Play("http://127.0.0.1/song.mp3", "Title", "Artist", "Album", "")
	waitFor(t, fr.gotLoad, "LOAD message")
	waitFor(t, playing, "Playing state")

	mediaSessionID := make(chan int, 1)
	session.enqueue(func() { mediaSessionID <- session.mediaSessionID })
	if got := <-mediaSessionID; got != 42 {
		t.Fatalf("mediaSessionID = %d, want 42", got)
	}
}

func TestPlayBeforeConnectedIsPendingAndReplaysOnce(t *testing.T) {
	fr := startFakeReceiver(t)
	defer fr.ln.Close()

	session := NewSession()
	defer session.Close()

	host, port := fr.addr()

	// Two plays issued back to back, both before the dial even starts:
	// the second must replace the first in the pending slot.
	session.Play("http://x/first.mp3", "", "", "", "")
	session.Play("http://x/second.mp3", "", "", "", "")

	got := make(chan string, 1)
	session.enqueue(func() { got <- session.pending.URL })
	if url := <-got; url != "http://x/second.mp3" {
		t.Fatalf("pending url = %q, want second.mp3 to have replaced first", url)
	}

	connected := make(chan struct{}, 1)
	session.OnConnectionState(func(s ConnectionState) {
		if s == Connected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	session.ConnectTo(Device{ID: DeviceID(host, port), IP: host, Port: port})
	waitFor(t, connected, "Connected state")
	waitFor(t, fr.gotLoad, "flushed pending LOAD")
}

func TestNoMediaCommandsSentWithoutMediaSessionID(t *testing.T) {
	session := NewSession()
	defer session.Close()

	// No channel ever connects: Pause/Stop/Seek must be no-ops, not panics,
	// and must leave playback state untouched.
	session.Pause()
	session.Stop()
	session.Seek(10)

	done := make(chan PlaybackState, 1)
	session.enqueue(func() { done <- session.playbackState })
	if got := <-done; got != Idle {
		t.Fatalf("playbackState = %s, want Idle (no media session existed)", got)
	}
}

