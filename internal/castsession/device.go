package castsession

import "fmt"

// Device identifies a discovered Cast receiver. Created by discovery;
// consumed read-only by the session machine.
type Device struct {
	ID           string // canonical "<ip>:<port>"
	FriendlyName string
	Model        string
	IP           string
	Port         int // default 8009
	Available    bool
}

// DeviceID returns the canonical "<ip>:<port>" identifier for a device at
// the given address. id is deterministic from ip:port.
func DeviceID(ip string, port int) string {
	return fmt.Sprintf("%s:%d", ip, port)
}
