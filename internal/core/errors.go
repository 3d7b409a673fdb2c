package core

import "errors"

var (
	// ErrHubNotRunning is returned by hub calls made before Run has started.
	ErrHubNotRunning = errors.New("hub not running")
	// ErrHubClosed is returned by hub calls made after Run has exited.
	ErrHubClosed = errors.New("hub closed")
	// ErrSlowConsumer is returned when a client's outbox is full.
	ErrSlowConsumer = errors.New("slow consumer")
	// ErrClientClosed is returned when sending to a closed client.
	ErrClientClosed = errors.New("client closed")
)
