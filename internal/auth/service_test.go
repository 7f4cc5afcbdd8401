package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Fyssion/zupplin/internal/api"
	"github.com/Fyssion/zupplin/internal/proto"
	"github.com/Fyssion/zupplin/internal/store/credentials"
)

func newTestService(t *testing.T) (*Service, *credentials.Store) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", func(c *gin.Context) {
		var req proto.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Password != "secret" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, proto.LoginResponse{Token: "tok-fresh"})
	})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	creds, err := credentials.New(filepath.Join(t.TempDir(), "creds.db"))
	if err != nil {
		t.Fatalf("open credential store: %v", err)
	}
	t.Cleanup(func() { _ = creds.Close() })

	logger := zerolog.Nop()
	return NewService(api.NewClient(ts.URL, time.Second), creds, &logger), creds
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestLoginPersistsToken(t *testing.T) {
	svc, creds := newTestService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token != "tok-fresh" {
		t.Fatalf("unexpected token: %s", token)
	}

	stored, err := creds.Get(ctx, credentials.KeyToken)
	if err != nil || stored != "tok-fresh" {
		t.Fatalf("token not persisted: %q (%v)", stored, err)
	}
}

func TestLoginFailureKeepsStoredToken(t *testing.T) {
	svc, creds := newTestService(t)
	ctx := context.Background()

	if err := creds.Set(ctx, credentials.KeyToken, "tok-old"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, api.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	stored, err := creds.Get(ctx, credentials.KeyToken)
	if err != nil || stored != "tok-old" {
		t.Fatalf("stored token changed: %q (%v)", stored, err)
	}
}

func TestTokenWithoutCredentials(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Token(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestTokenRestoresOpaqueToken(t *testing.T) {
	svc, creds := newTestService(t)
	ctx := context.Background()

	if err := creds.Set(ctx, credentials.KeyToken, "not-a-jwt"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	token, err := svc.Token(ctx)
	if err != nil || token != "not-a-jwt" {
		t.Fatalf("expected opaque token back, got %q (%v)", token, err)
	}
}

func TestTokenRejectsExpiredJWT(t *testing.T) {
	svc, creds := newTestService(t)
	ctx := context.Background()

	expired := signedToken(t, time.Now().Add(-time.Hour))
	if err := creds.Set(ctx, credentials.KeyToken, expired); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	if _, err := svc.Token(ctx); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenAcceptsValidJWT(t *testing.T) {
	svc, creds := newTestService(t)
	ctx := context.Background()

	valid := signedToken(t, time.Now().Add(time.Hour))
	if err := creds.Set(ctx, credentials.KeyToken, valid); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	token, err := svc.Token(ctx)
	if err != nil || token != valid {
		t.Fatalf("expected token back, got %q (%v)", token, err)
	}
}

func TestLogout(t *testing.T) {
	svc, creds := newTestService(t)
	ctx := context.Background()

	if err := creds.Set(ctx, credentials.KeyToken, "tok"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Token(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials after logout, got %v", err)
	}
}
