package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatguard-server/internal/config"
	"github.com/vovakirdan/chatguard-server/internal/core"
	"github.com/vovakirdan/chatguard-server/internal/proto"
	"github.com/vovakirdan/chatguard-server/internal/session"
)

const writeTimeout = 10 * time.Second

// WSHandler upgrades HTTP connections and hands them to the session orchestrator.
type WSHandler struct {
	sessions  *session.Orchestrator
	buffer    int
	readLimit int64
	rateLimit int
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(sessions *session.Orchestrator, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		sessions:  sessions,
		buffer:    cfg.ClientBuffer,
		readLimit: cfg.MaxMessageBytes,
		rateLimit: cfg.WSRateLimit,
		log:       logger,
	}
}

// ServeHTTP serves GET /ws/{username}.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "username is required"})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(username, h.buffer)
	logger := h.log.With().Str("username", username).Str("conn_id", client.ID).Logger()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	in := &wsInbound{
		conn:    conn,
		client:  client,
		limiter: newRateLimiter(h.rateLimit),
		log:     &logger,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.sessions.Serve(ctx, client, in)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
	default:
		status = websocket.StatusInternalError
		reason = "internal error"
		logger.Warn().Err(err).Msg("ws connection closed with error")
	}

	_ = conn.Close(status, reason)
}

// writeLoop is the only writer on conn. It stops when the client is closed,
// which also happens when a newer connection replaces it.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case ev := <-client.Events:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, ev.Payload)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// wsInbound decodes client frames for the session. Malformed frames are
// skipped; frames over the rate limit are answered with an error frame.
type wsInbound struct {
	conn    *websocket.Conn
	client  *core.Client
	limiter *rateLimiter
	log     *zerolog.Logger
}

func (in *wsInbound) Receive(ctx context.Context) (proto.Inbound, error) {
	for {
		_, data, err := in.conn.Read(ctx)
		if err != nil {
			return proto.Inbound{}, err
		}

		var msg proto.Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			in.log.Debug().Err(err).Msg("ignoring malformed inbound payload")
			continue
		}

		if !in.limiter.allow() {
			frame := proto.NewError(proto.ErrCodeRateLimited, "too many messages, slow down")
			if err := in.client.Deliver(ctx, frame); err != nil {
				return proto.Inbound{}, err
			}
			continue
		}
		return msg, nil
	}
}
