package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultBuffer is the outbox size used when NewClient gets a non-positive buffer.
const DefaultBuffer = 32

// Handle is what the hub delivers broadcasts through. Send must not block.
type Handle interface {
	Send(payload any) error
	Close()
}

// Client is a chat participant as seen by the core layer. A single writer
// drains Events until Done is closed.
type Client struct {
	ID     string
	Name   string
	Events chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with a fresh connection id.
func NewClient(name string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Client{
		ID:     uuid.NewString(),
		Name:   name,
		Events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Send queues a broadcast payload without blocking.
func (c *Client) Send(payload any) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.Events <- Event{Kind: EventBroadcast, Payload: payload}:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Deliver queues a payload addressed to this client only, waiting for room in the outbox.
func (c *Client) Deliver(ctx context.Context, payload any) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.Events <- Event{Kind: EventDirect, Payload: payload}:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the client closed. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
