package castsession

import "sync/atomic"

// requestIDCounter hands out a per-session, monotonically increasing,
// positive request ID on every outbound request-bearing message.
type requestIDCounter struct {
	next atomic.Uint64
}

// Next returns the next request ID, starting from 1.
func (c *requestIDCounter) Next() int {
	return int(c.next.Add(1))
}
