// Package session runs one chat connection: it feeds inbound messages through
// the analysis pipeline, replies to the sender and fans out the digest.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/chatguard-server/internal/core"
	"github.com/vovakirdan/chatguard-server/internal/pipeline"
	"github.com/vovakirdan/chatguard-server/internal/proto"
)

// Processor analyzes and records one message.
type Processor interface {
	Process(ctx context.Context, text, author string) (*pipeline.Response, error)
}

// Registry is the part of the hub a session needs.
type Registry interface {
	Connect(id string, handle core.Handle) error
	Release(id string, handle core.Handle) bool
	Registered(id string) bool
	Broadcast(payload any) int
}

// Inbound yields decoded client messages. It returns an error when the
// connection is gone.
type Inbound interface {
	Receive(ctx context.Context) (proto.Inbound, error)
}

// Orchestrator serves chat sessions.
type Orchestrator struct {
	pipeline Processor
	hub      Registry
	log      *zerolog.Logger
	now      func() time.Time
}

// New creates an Orchestrator.
func New(p Processor, hub Registry, logger *zerolog.Logger) *Orchestrator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Orchestrator{pipeline: p, hub: hub, log: logger, now: time.Now}
}

// Serve registers client, then processes its messages in receipt order until
// in fails or ctx is cancelled. Cancellation ends only this session.
func (o *Orchestrator) Serve(ctx context.Context, client *core.Client, in Inbound) error {
	logger := o.log.With().Str("username", client.Name).Str("conn_id", client.ID).Logger()

	if err := o.hub.Connect(client.Name, client); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	defer o.leave(client, &logger)

	welcome := proto.NewSystem(
		fmt.Sprintf("Welcome %s! You are now connected to the moderated chat.", client.Name),
		o.now(),
	)
	if err := client.Deliver(ctx, welcome); err != nil {
		return err
	}
	logger.Info().Msg("session started")

	for {
		msg, err := in.Receive(ctx)
		if err != nil {
			return err
		}
		if msg.Type != "" && msg.Type != proto.InboundTypeMessage {
			logger.Debug().Str("type", msg.Type).Msg("ignoring inbound message")
			continue
		}
		text := strings.TrimSpace(msg.Message)
		if text == "" {
			continue
		}

		resp, err := o.pipeline.Process(ctx, text, client.Name)
		if err != nil {
			if errors.Is(err, pipeline.ErrEmptyMessage) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error().Err(err).Msg("message processing failed")
			if err := client.Deliver(ctx, errorFrame(err)); err != nil {
				return err
			}
			continue
		}

		if err := client.Deliver(ctx, proto.NewAnalysis(resp.Response)); err != nil {
			return err
		}
		o.hub.Broadcast(resp.Digest())
	}
}

// leave unregisters client and announces the departure, unless a newer
// connection under the same name has already replaced it. A client the hub
// dropped as a slow consumer is no longer registered and is still announced.
func (o *Orchestrator) leave(client *core.Client, logger *zerolog.Logger) {
	defer client.Close()
	if !o.hub.Release(client.Name, client) && o.hub.Registered(client.Name) {
		return
	}
	o.hub.Broadcast(proto.NewSystem(client.Name+" left the chat", o.now()))
	logger.Info().Msg("session ended")
}

func errorFrame(err error) proto.ErrorEnvelope {
	if errors.Is(err, pipeline.ErrPersist) {
		return proto.NewError(proto.ErrCodePersist, "message analyzed but could not be saved")
	}
	return proto.NewError(proto.ErrCodeInternal, "message could not be processed")
}
