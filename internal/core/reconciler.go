package core

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Fyssion/zupplin/internal/proto"
	"github.com/Fyssion/zupplin/internal/state"
)

// Reconciler applies decoded gateway events to the session state store.
// It is the only writer during steady state, so map updates never race.
type Reconciler struct {
	state *state.Store
	log   *zerolog.Logger
}

// NewReconciler builds a reconciler over the given store.
func NewReconciler(st *state.Store, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{state: st, log: logger}
}

// Apply dispatches one event into the store. Mutations are last-write-wins
// by id; each state-changing event produces exactly one publication to
// observers. An event the reconciler does not know is a protocol error and
// leaves state untouched.
func (r *Reconciler) Apply(ev proto.Event) error {
	switch ev.Kind {
	case proto.EventMessageCreate:
		r.state.UpsertMessage(ev.Message)
		r.log.Debug().
			Str("message_id", string(ev.Message.ID)).
			Str("room_id", string(ev.Message.RoomID)).
			Msg("message create")
	case proto.EventRoomJoin:
		r.state.UpsertRoom(ev.Room)
		r.log.Debug().Str("room_id", string(ev.Room.ID)).Msg("room join")
	case proto.EventHeartbeatAck:
		// Liveness confirmation only.
	case proto.EventHello:
		// The server's preferred cadence is informational; the heartbeat
		// driver keeps its configured interval.
		r.log.Info().Dur("heartbeat_interval", ev.HeartbeatInterval).Msg("hello")
	default:
		return &proto.ProtocolError{
			Code:    proto.ErrCodeUnknownEvent,
			Message: fmt.Sprintf("unhandled event kind %d", ev.Kind),
		}
	}
	return nil
}
