// Command devserver runs a local stand-in for the zupplin service so the
// client can be exercised end to end without the real backend. It serves
// login, the bootstrap snapshot, and a gateway that heartbeat-acks and
// emits a chat message on a timer.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Fyssion/zupplin/internal/proto"
)

type serverFrame struct {
	Opcode    string `json:"opcode"`
	EventName string `json:"event_name,omitempty"`
	Data      any    `json:"data,omitempty"`
}

type devServer struct {
	email        string
	passwordHash []byte
	interval     time.Duration

	mu     sync.Mutex
	tokens map[string]struct{}
}

func main() {
	addr := flag.String("addr", ":4000", "listen address")
	email := flag.String("email", "dev@zupplin.org", "seeded account email")
	password := flag.String("password", "hunter22", "seeded account password")
	interval := flag.Duration("interval", 5*time.Second, "interval between emitted messages")
	flag.Parse()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	srv := &devServer{
		email:        *email,
		passwordHash: hash,
		interval:     *interval,
		tokens:       make(map[string]struct{}),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.POST("/login", srv.handleLogin)
	r.GET("/users/me", srv.handleMe)
	r.GET("/websocket/connect", gin.WrapF(srv.handleGateway))

	log.Printf("devserver listening on %s (account %s)", *addr, *email)
	if err := r.Run(*addr); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func (s *devServer) handleLogin(c *gin.Context) {
	var req proto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if req.Email != s.email || bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()

	c.JSON(http.StatusOK, proto.LoginResponse{Token: token})
}

func (s *devServer) handleMe(c *gin.Context) {
	if !s.validToken(bearerToken(c.GetHeader("Authorization"))) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, proto.MeResponse{
		User:  devUser(),
		Rooms: map[proto.ID]proto.Room{devRoom().ID: devRoom()},
	})
}

func (s *devServer) handleGateway(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Printf("ws accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	hello := serverFrame{Opcode: proto.OpcodeHello, Data: proto.HelloData{HeartbeatInterval: 60000}}
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		return
	}

	// First frame must be an identify with a token we issued.
	var identify struct {
		Opcode string             `json:"opcode"`
		Data   proto.IdentifyData `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &identify); err != nil {
		return
	}
	if identify.Opcode != proto.OpcodeIdentify || !s.validToken(identify.Data.Token) {
		conn.Close(websocket.StatusPolicyViolation, "bad identify")
		return
	}
	log.Printf("gateway client identified")

	var writeMu sync.Mutex
	send := func(frame serverFrame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return wsjson.Write(ctx, conn, frame)
	}

	go func() {
		defer cancel()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 1; ; i++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				msg := devMessage(i)
				frame := serverFrame{
					Opcode:    proto.OpcodeDispatch,
					EventName: proto.EventNameMessageCreate,
					Data:      msg,
				}
				if err := send(frame); err != nil {
					return
				}
			}
		}
	}()

	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			return
		}
		var frame struct {
			Opcode string `json:"opcode"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if frame.Opcode == proto.OpcodeHeartbeat {
			if err := send(serverFrame{Opcode: proto.OpcodeHeartbeatAck}); err != nil {
				return
			}
		}
	}
}

func (s *devServer) validToken(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func devUser() proto.User {
	return proto.User{ID: "u-dev", Username: "dev", Name: "Dev User"}
}

func devRoom() proto.Room {
	return proto.Room{
		ID:          "r-lounge",
		Name:        "lounge",
		Description: "devserver lounge",
		OwnerID:     "u-dev",
		Me:          proto.RoomMe{PermissionLevel: 1},
	}
}

func devMessage(n int) proto.Message {
	return proto.Message{
		ID:      proto.ID("m-" + strconv.Itoa(n)),
		Content: fmt.Sprintf("tick %d", n),
		RoomID:  devRoom().ID,
		Author:  devUser(),
		Type:    proto.MessageTypeStandard,
	}
}
