package core

// commandKind describes a request to the hub actor.
type commandKind int

const (
	commandConnect commandKind = iota
	commandDisconnect
	commandRelease
	commandBroadcast
	commandRegistered
	commandCount
	commandIdentities
)

// command is a request served by Hub.Run. reply is buffered so the actor never blocks on it.
type command struct {
	kind    commandKind
	id      string
	handle  Handle
	payload any
	reply   chan result
}

type result struct {
	n     int
	ok    bool
	names []string
}
