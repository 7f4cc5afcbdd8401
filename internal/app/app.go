package app

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/Fyssion/zupplin/internal/api"
	"github.com/Fyssion/zupplin/internal/auth"
	"github.com/Fyssion/zupplin/internal/config"
	"github.com/Fyssion/zupplin/internal/core"
	"github.com/Fyssion/zupplin/internal/gateway"
	"github.com/Fyssion/zupplin/internal/proto"
	"github.com/Fyssion/zupplin/internal/state"
	"github.com/Fyssion/zupplin/internal/store/credentials"
	"github.com/Fyssion/zupplin/internal/transport/ws"
)

// App wires the client together: credential store, API client, session
// state, and the gateway connection.
type App struct {
	cfg   config.Config
	log   *zerolog.Logger
	creds *credentials.Store
	api   *api.Client
	auth  *auth.Service
	state *state.Store
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	creds, err := credentials.New(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("init credential store: %w", err)
	}

	apiClient := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)

	return &App{
		cfg:   cfg,
		log:   logger,
		creds: creds,
		api:   apiClient,
		auth:  auth.NewService(apiClient, creds, logger),
		state: state.New(),
	}, nil
}

// State exposes the session state store so callers can observe updates.
func (a *App) State() *state.Store {
	return a.state
}

// Auth exposes the credential lifecycle for the CLI's login/logout.
func (a *App) Auth() *auth.Service {
	return a.auth
}

// Run performs the startup sequence — restore the token, fetch the
// user/room snapshot, connect to the gateway, identify — then blocks in
// steady state until the connection ends or ctx is cancelled. A failure at
// any step aborts the attempt; effects of completed steps (like a persisted
// token) remain, which is what makes retry-by-rerun work.
func (a *App) Run(ctx context.Context) error {
	token, err := a.auth.Token(ctx)
	if err != nil {
		return err
	}

	me, err := a.api.Me(ctx, token)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	a.state.SetUser(me.User)
	a.state.MergeRooms(me.Rooms)
	a.log.Info().
		Str("user_id", string(me.User.ID)).
		Int("rooms", len(me.Rooms)).
		Msg("bootstrap snapshot loaded")

	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.DialTimeout)
	session, err := ws.Dial(dialCtx, a.cfg.GatewayURL)
	cancel()
	if err != nil {
		return err
	}
	defer session.Close(websocket.StatusNormalClosure, "bye")

	recon := core.NewReconciler(a.state, a.log)
	gw := gateway.New(session, recon, a.cfg.HeartbeatInterval, a.log)
	return gw.Run(ctx, token)
}

// Me fetches the current user's profile with the stored token.
func (a *App) Me(ctx context.Context) (proto.MeResponse, error) {
	token, err := a.auth.Token(ctx)
	if err != nil {
		return proto.MeResponse{}, err
	}
	return a.api.Me(ctx, token)
}

// Close releases resources.
func (a *App) Close() error {
	return a.creds.Close()
}
