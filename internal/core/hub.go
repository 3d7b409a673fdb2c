package core

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/chatguard-server/internal/metrics"
)

// Hub owns the connection registry. Run serializes every request, so the
// registry is never read and mutated at the same time.
type Hub struct {
	log      *zerolog.Logger
	commands chan command
	started  chan struct{}
	done     chan struct{}
	clients  map[string]Handle
}

// NewHub creates a hub. Calls made before Run starts return ErrHubNotRunning.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		log:      logger,
		commands: make(chan command),
		started:  make(chan struct{}),
		done:     make(chan struct{}),
		clients:  make(map[string]Handle),
	}
}

// Run serves requests until ctx is cancelled, then closes every registered
// handle. It must be called once.
func (h *Hub) Run(ctx context.Context) error {
	close(h.started)
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return nil
		case cmd := <-h.commands:
			cmd.reply <- h.handle(cmd)
		}
	}
}

// Started is closed once Run is serving requests.
func (h *Hub) Started() <-chan struct{} {
	return h.started
}

// Done is closed when Run has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Connect registers handle under id, replacing and closing any prior handle.
func (h *Hub) Connect(id string, handle Handle) error {
	_, err := h.do(command{kind: commandConnect, id: id, handle: handle})
	return err
}

// Disconnect removes id. Removing an absent id is a no-op.
func (h *Hub) Disconnect(id string) error {
	_, err := h.do(command{kind: commandDisconnect, id: id})
	return err
}

// Release removes id only while handle is still the registered one, so a
// session ending after a reconnect does not evict its successor.
func (h *Hub) Release(id string, handle Handle) bool {
	res, err := h.do(command{kind: commandRelease, id: id, handle: handle})
	return err == nil && res.ok
}

// Broadcast delivers payload to every registered handle and returns how many
// accepted it. Handles that fail are removed and closed.
func (h *Hub) Broadcast(payload any) int {
	res, err := h.do(command{kind: commandBroadcast, payload: payload})
	if err != nil {
		return 0
	}
	return res.n
}

// Registered reports whether id currently has a handle.
func (h *Hub) Registered(id string) bool {
	res, err := h.do(command{kind: commandRegistered, id: id})
	return err == nil && res.ok
}

// Count returns the number of registered identities.
func (h *Hub) Count() int {
	res, err := h.do(command{kind: commandCount})
	if err != nil {
		return 0
	}
	return res.n
}

// Identities returns the registered identities in sorted order.
func (h *Hub) Identities() []string {
	res, err := h.do(command{kind: commandIdentities})
	if err != nil {
		return nil
	}
	return res.names
}

func (h *Hub) do(cmd command) (result, error) {
	select {
	case <-h.started:
	default:
		return result{}, ErrHubNotRunning
	}

	cmd.reply = make(chan result, 1)
	select {
	case h.commands <- cmd:
	case <-h.done:
		return result{}, ErrHubClosed
	}
	return <-cmd.reply, nil
}

func (h *Hub) handle(cmd command) result {
	switch cmd.kind {
	case commandConnect:
		if prev, ok := h.clients[cmd.id]; ok && prev != cmd.handle {
			prev.Close()
			h.log.Info().Str("username", cmd.id).Msg("connection replaced")
		}
		h.clients[cmd.id] = cmd.handle
		h.updateGauge()
		return result{ok: true}

	case commandDisconnect:
		h.remove(cmd.id)
		return result{ok: true}

	case commandRelease:
		if cur, ok := h.clients[cmd.id]; ok && cur == cmd.handle {
			h.remove(cmd.id)
			return result{ok: true}
		}
		return result{}

	case commandBroadcast:
		return result{n: h.broadcast(cmd.payload)}

	case commandRegistered:
		_, ok := h.clients[cmd.id]
		return result{ok: ok}

	case commandCount:
		return result{n: len(h.clients)}

	case commandIdentities:
		names := make([]string, 0, len(h.clients))
		for id := range h.clients {
			names = append(names, id)
		}
		sort.Strings(names)
		return result{names: names}
	}
	return result{}
}

func (h *Hub) broadcast(payload any) int {
	delivered := 0
	for id, handle := range h.clients {
		if err := handle.Send(payload); err != nil {
			h.log.Warn().Err(err).Str("username", id).Msg("broadcast delivery failed, dropping connection")
			metrics.BroadcastDrops.Inc()
			delete(h.clients, id)
			handle.Close()
			continue
		}
		delivered++
	}
	h.updateGauge()
	return delivered
}

func (h *Hub) remove(id string) {
	handle, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	handle.Close()
	h.updateGauge()
}

func (h *Hub) shutdown() {
	for id, handle := range h.clients {
		delete(h.clients, id)
		handle.Close()
	}
	h.updateGauge()
}

func (h *Hub) updateGauge() {
	metrics.ActiveConnections.Set(float64(len(h.clients)))
}
