package castsession

import "testing"

func TestConnTransitions(t *testing.T) {
	cases := []struct {
		from, to ConnectionState
		want     bool
	}{
		{Disconnected, Connecting, true},
		{Disconnected, Connected, false},
		{Connecting, Connected, true},
		{Connecting, ConnError, true},
		{Connecting, Disconnecting, true},
		{Connected, Disconnecting, true},
		{Connected, Connecting, false},
		{Disconnecting, Disconnected, true},
		{Disconnecting, Connected, false},
		{ConnError, Connecting, true},
		{ConnError, Connected, false},
		{ConnError, Disconnecting, true},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestPlayerStateFromWire(t *testing.T) {
	cases := []struct {
		wire string
		want PlaybackState
		ok   bool
	}{
		{"PLAYING", Playing, true},
		{"PAUSED", Paused, true},
		{"BUFFERING", Buffering, true},
		{"IDLE", Idle, true},
		{"SOMETHING_UNKNOWN", Idle, false},
		{"", Idle, false},
	}
	for _, c := range cases {
		got, ok := playerStateFromWire(c.wire)
		if got != c.want || ok != c.ok {
			t.Errorf("playerStateFromWire(%q) = (%s, %v), want (%s, %v)", c.wire, got, ok, c.want, c.ok)
		}
	}
}

func TestRequestIDCounterMonotonic(t *testing.T) {
	var c requestIDCounter
	seen := map[int]bool{}
	prev := 0
	for i := 0; i < 100; i++ {
		next := c.Next()
		if next <= prev {
			t.Fatalf("request id %d did not increase past %d", next, prev)
		}
		if seen[next] {
			t.Fatalf("duplicate request id %d", next)
		}
		seen[next] = true
		prev = next
	}
	if first := (&requestIDCounter{}).Next(); first != 1 {
		t.Errorf("first request id = %d, want 1", first)
	}
}
