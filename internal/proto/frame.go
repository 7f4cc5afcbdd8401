package proto

import (
	"encoding/json"
	"fmt"
	"time"
)

// Gateway opcodes. Even opcodes flow server to client, odd ones client to server.
const (
	OpcodeDispatch     = "0"
	OpcodeHeartbeat    = "1"
	OpcodeHeartbeatAck = "2"
	OpcodeIdentify     = "3"
	OpcodeHello        = "4"
)

// Dispatch event names.
const (
	EventNameMessageCreate = "MessageCreate"
	EventNameRoomJoin      = "RoomJoin"
)

// EventKind identifies a decoded inbound frame.
type EventKind int

const (
	// EventMessageCreate carries a new message for a room.
	EventMessageCreate EventKind = iota
	// EventRoomJoin notifies that the current user joined a room.
	EventRoomJoin
	// EventHeartbeatAck confirms a heartbeat; carries no data.
	EventHeartbeatAck
	// EventHello is the server's greeting with its preferred heartbeat interval.
	EventHello
)

// Event is a decoded inbound frame.
type Event struct {
	Kind              EventKind
	Message           Message       // for EventMessageCreate
	Room              Room          // for EventRoomJoin
	HeartbeatInterval time.Duration // for EventHello
}

// Outbound is the envelope for frames sent to the server.
type Outbound struct {
	Opcode string `json:"opcode"`
	Data   any    `json:"data,omitempty"`
}

// IdentifyData authenticates the connection after dialing.
type IdentifyData struct {
	Token string `json:"token"`
}

// HelloData is the payload of an OpcodeHello frame. The interval is in
// milliseconds on the wire.
type HelloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// HeartbeatFrame builds an outbound heartbeat.
func HeartbeatFrame() Outbound {
	return Outbound{Opcode: OpcodeHeartbeat}
}

// IdentifyFrame builds an outbound identify carrying the auth token.
func IdentifyFrame(token string) Outbound {
	return Outbound{Opcode: OpcodeIdentify, Data: IdentifyData{Token: token}}
}

// inboundFrame is the envelope for frames received from the server.
// Dispatch payloads are flattened into the frame next to event_name.
type inboundFrame struct {
	Opcode    string          `json:"opcode"`
	EventName string          `json:"event_name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// DecodeInbound parses one raw frame into a typed event. Unknown opcodes and
// event names are protocol errors; the caller must treat them as fatal for
// the connection rather than guess at the payload.
func DecodeInbound(raw []byte) (Event, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Event{}, protocolError(ErrCodeMalformedFrame, fmt.Sprintf("decode frame: %v", err))
	}

	switch frame.Opcode {
	case OpcodeDispatch:
		return decodeDispatch(frame)
	case OpcodeHeartbeatAck:
		return Event{Kind: EventHeartbeatAck}, nil
	case OpcodeHello:
		var hello HelloData
		if err := json.Unmarshal(frame.Data, &hello); err != nil {
			return Event{}, protocolError(ErrCodeMalformedFrame, fmt.Sprintf("decode hello: %v", err))
		}
		return Event{
			Kind:              EventHello,
			HeartbeatInterval: time.Duration(hello.HeartbeatInterval) * time.Millisecond,
		}, nil
	default:
		return Event{}, protocolError(ErrCodeUnknownOpcode, fmt.Sprintf("unknown opcode %q", frame.Opcode))
	}
}

func decodeDispatch(frame inboundFrame) (Event, error) {
	switch frame.EventName {
	case EventNameMessageCreate:
		var msg Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			return Event{}, protocolError(ErrCodeMalformedFrame, fmt.Sprintf("decode %s: %v", frame.EventName, err))
		}
		return Event{Kind: EventMessageCreate, Message: msg}, nil
	case EventNameRoomJoin:
		var room Room
		if err := json.Unmarshal(frame.Data, &room); err != nil {
			return Event{}, protocolError(ErrCodeMalformedFrame, fmt.Sprintf("decode %s: %v", frame.EventName, err))
		}
		return Event{Kind: EventRoomJoin, Room: room}, nil
	default:
		return Event{}, protocolError(ErrCodeUnknownEvent, fmt.Sprintf("unknown dispatch event %q", frame.EventName))
	}
}
