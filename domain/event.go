package domain

// Kind enumerates every inbound event a router can bind a handler to.
type Kind string

const (
	KindCreate Kind = "CREATE"
	KindStart  Kind = "START"
	KindStop   Kind = "STOP"
	KindRemove Kind = "REMOVE"

	KindUserJoin  Kind = "UserJoin"
	KindUserLeave Kind = "UserLeave"
	KindChat      Kind = "Chat"
)

// Outbound event names.
const (
	EventInstances  = "Instances"
	EventProcessing = "Processing"
	EventCreated    = "CREATED"
	EventStarted    = "STARTED"
	EventStopped    = "STOPPED"
	EventRemoved    = "REMOVED"
	EventError      = "ERROR"

	EventUsersList = "UsersList"
	EventChat      = "Chat"
	EventMessage   = "Message"
)

// Notice is the payload of every lifecycle reply sent to the issuer.
type Notice struct {
	ID   string `json:"id,omitempty"`
	Info string `json:"INFO"`
}

// INFO texts carried by Notice.
const (
	InfoCreated           = "Created"
	InfoStarted           = "Started"
	InfoStopped           = "Stopped"
	InfoRemoved           = "Removed"
	InfoNotFound          = "Instance not found"
	InfoAlreadyStarted    = "Instance already started"
	InfoAlreadyStopped    = "Instance already stopped"
	InfoInvalidPayload    = "Invalid payload"
	InfoMalformedEnvelope = "Malformed envelope"
)

// ProcessingInfo is the INFO of the acknowledgement sent before the delay.
func ProcessingInfo(kind Kind) string {
	return `Received "` + string(kind) + ` command"`
}
