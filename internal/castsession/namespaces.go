package castsession

// Namespace strings select which Cast subsystem handles a message. Only
// the namespace dispatches inbound routing; the JSON "type" field selects
// the handler inside it.
const (
	NamespaceConnection = "urn:x-cast:com.google.cast.tp.connection"
	NamespaceHeartbeat  = "urn:x-cast:com.google.cast.tp.heartbeat"
	NamespaceReceiver   = "urn:x-cast:com.google.cast.receiver"
	NamespaceMedia      = "urn:x-cast:com.google.cast.media"
)

const (
	// sourceID is this sender's fixed identity on every message.
	sourceID = "sender-0"
	// receiverID is the platform receiver's endpoint for CONNECT/heartbeat/
	// GET_STATUS/LAUNCH/SET_VOLUME.
	receiverID = "receiver-0"
)

// DefaultMediaReceiverAppID is CC1AD845, the only Cast application this
// core targets.
const DefaultMediaReceiverAppID = "CC1AD845"

// idleBackdropAppID (E8C28D3C) is treated as "no media app" like any other
// non-default app, and triggers LAUNCH.
const idleBackdropAppID = "E8C28D3C"
