package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Fyssion/zupplin/internal/proto"
)

// ErrClosed reports that the connection ended normally. A session is not
// restartable; a new connection means a new Session.
var ErrClosed = errors.New("session closed")

// Session owns one live duplex connection to the gateway. Reads must come
// from a single goroutine; writes may come from several and are serialized
// internally.
type Session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Dial opens a websocket session against the gateway URL.
func Dial(ctx context.Context, url string) (*Session, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Send writes one outbound frame. The heartbeat driver and the identify
// path share this connection, so writes take a lock to keep each frame
// intact on the wire.
func (s *Session) Send(ctx context.Context, frame proto.Outbound) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return wsjson.Write(ctx, s.conn, frame)
}

// Read blocks for the next inbound frame and decodes it. Once the
// connection ends it returns ErrClosed and every later call fails.
func (s *Session) Read(ctx context.Context) (proto.Event, error) {
	var raw json.RawMessage
	if err := wsjson.Read(ctx, s.conn, &raw); err != nil {
		if errors.Is(err, io.EOF) {
			return proto.Event{}, ErrClosed
		}
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return proto.Event{}, ErrClosed
		}
		return proto.Event{}, fmt.Errorf("read frame: %w", err)
	}
	return proto.DecodeInbound(raw)
}

// Close tears the connection down with the given status.
func (s *Session) Close(status websocket.StatusCode, reason string) error {
	return s.conn.Close(status, reason)
}
