package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Fyssion/zupplin/internal/core"
	"github.com/Fyssion/zupplin/internal/proto"
	"github.com/Fyssion/zupplin/internal/transport/ws"
)

// Gateway drives one connection's steady state: it identifies, then runs a
// heartbeat loop and a read/reconcile loop concurrently until either one
// exits, at which point the other is cancelled. There is no reconnect; when
// Run returns, the session is done.
type Gateway struct {
	session  *ws.Session
	recon    *core.Reconciler
	interval time.Duration
	log      zerolog.Logger
}

// New builds a gateway over an established session. interval is the
// heartbeat cadence; the server's hello may advertise a different one, which
// is logged but not applied.
func New(session *ws.Session, recon *core.Reconciler, interval time.Duration, logger *zerolog.Logger) *Gateway {
	connLog := logger.With().Str("connection_id", uuid.NewString()).Logger()
	return &Gateway{
		session:  session,
		recon:    recon,
		interval: interval,
		log:      connLog,
	}
}

// Run sends the identify frame and pumps the connection until it ends.
// A normal closure returns nil; a protocol error closes the connection
// with a protocol-error status and is returned to the caller.
func (g *Gateway) Run(ctx context.Context, token string) error {
	if err := g.session.Send(ctx, proto.IdentifyFrame(token)); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}
	g.log.Info().Msg("identified")

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- g.heartbeatLoop(loopCtx)
	}()
	go func() {
		errCh <- g.readLoop(loopCtx)
	}()

	err := <-errCh
	cancel() // stop the other loop
	<-errCh

	switch {
	case err == nil, errors.Is(err, ws.ErrClosed), errors.Is(err, context.Canceled), ctx.Err() != nil:
		g.log.Info().Msg("session ended")
		return nil
	}

	var protoErr *proto.ProtocolError
	if errors.As(err, &protoErr) {
		g.log.Error().Str("code", protoErr.Code).Msg(protoErr.Message)
		_ = g.session.Close(websocket.StatusProtocolError, protoErr.Code)
		return err
	}

	g.log.Warn().Err(err).Msg("session ended with error")
	return err
}

// heartbeatLoop emits a heartbeat every interval, starting one interval
// after the connection is established. A failed send is its signal that the
// session is gone.
func (g *Gateway) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.session.Send(ctx, proto.HeartbeatFrame()); err != nil {
				return fmt.Errorf("send heartbeat: %w", err)
			}
			g.log.Debug().Msg("heartbeat sent")
		}
	}
}

// readLoop is the sole reader: it decodes each inbound frame and hands it
// to the reconciler until the sequence ends.
func (g *Gateway) readLoop(ctx context.Context) error {
	for {
		ev, err := g.session.Read(ctx)
		if err != nil {
			return err
		}
		if err := g.recon.Apply(ev); err != nil {
			return err
		}
	}
}
