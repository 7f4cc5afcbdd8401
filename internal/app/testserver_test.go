package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/Fyssion/zupplin/internal/config"
	"github.com/Fyssion/zupplin/internal/proto"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "secret"
	testToken    = "tok-e2e"
)

// fakeService is an in-process stand-in for the zupplin backend: the two
// REST endpoints plus a gateway whose behavior each test scripts.
type fakeService struct {
	ts         *httptest.Server
	identified chan proto.IdentifyData
	script     func(ctx context.Context, conn *websocket.Conn)
}

func startFakeService(t *testing.T, script func(ctx context.Context, conn *websocket.Conn)) *fakeService {
	t.Helper()

	f := &fakeService{
		identified: make(chan proto.IdentifyData, 1),
		script:     script,
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/login", func(c *gin.Context) {
		var req proto.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		if req.Email != testEmail || req.Password != testPassword {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, proto.LoginResponse{Token: testToken})
	})

	r.GET("/users/me", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+testToken {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.JSON(http.StatusOK, proto.MeResponse{
			User: proto.User{ID: "u1", Username: "alice", Name: "Alice"},
			Rooms: map[proto.ID]proto.Room{
				"r1": {ID: "r1", Name: "general", OwnerID: "u1", Me: proto.RoomMe{PermissionLevel: 1}},
			},
		})
	})

	r.GET("/websocket/connect", gin.WrapF(f.handleGateway))

	f.ts = httptest.NewServer(r)
	t.Cleanup(f.ts.Close)
	return f
}

func (f *fakeService) handleGateway(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx := r.Context()

	var identify struct {
		Opcode string             `json:"opcode"`
		Data   proto.IdentifyData `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &identify); err != nil {
		return
	}
	if identify.Opcode != proto.OpcodeIdentify || identify.Data.Token != testToken {
		conn.Close(websocket.StatusPolicyViolation, "bad identify")
		return
	}
	f.identified <- identify.Data

	if f.script != nil {
		f.script(ctx, conn)
	}
	conn.Close(websocket.StatusNormalClosure, "done")
}

func (f *fakeService) clientConfig(t *testing.T) config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.APIBaseURL = f.ts.URL
	cfg.GatewayURL = strings.Replace(f.ts.URL, "http", "ws", 1) + "/websocket/connect"
	cfg.CredentialsPath = filepath.Join(t.TempDir(), "creds.db")
	cfg.HeartbeatInterval = time.Minute
	cfg.DialTimeout = 2 * time.Second
	cfg.RequestTimeout = 2 * time.Second
	return cfg
}

func sendDispatch(ctx context.Context, conn *websocket.Conn, eventName string, payload any) error {
	return wsjson.Write(ctx, conn, map[string]any{
		"opcode":     proto.OpcodeDispatch,
		"event_name": eventName,
		"data":       payload,
	})
}
