package core

// EventKind tells the writer loop where an outbound payload came from.
type EventKind int

const (
	// EventDirect is addressed to this client only (welcome, analysis, errors).
	EventDirect EventKind = iota
	// EventBroadcast was fanned out to every connected client.
	EventBroadcast
)

// Event is an outbound payload queued for one client.
type Event struct {
	Kind    EventKind
	Payload any
}
