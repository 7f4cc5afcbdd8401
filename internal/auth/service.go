package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Fyssion/zupplin/internal/api"
	"github.com/Fyssion/zupplin/internal/store/credentials"
)

var (
	// ErrNoCredentials is returned when no token has been persisted yet.
	ErrNoCredentials = errors.New("no stored credentials")
	// ErrTokenExpired is returned when the persisted token is a JWT whose
	// expiry has passed.
	ErrTokenExpired = errors.New("stored token expired")
)

// Service owns the client's credential lifecycle: logging in, persisting
// the token, and restoring it on startup.
type Service struct {
	api   *api.Client
	creds *credentials.Store
	log   *zerolog.Logger
}

// NewService creates an auth service over the API client and credential store.
func NewService(apiClient *api.Client, creds *credentials.Store, logger *zerolog.Logger) *Service {
	return &Service{
		api:   apiClient,
		creds: creds,
		log:   logger,
	}
}

// Login exchanges email/password for a token and persists it. A failed
// login leaves any previously stored token in place.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		return "", err
	}
	if err := s.creds.Set(ctx, credentials.KeyToken, token); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}
	s.log.Info().Msg("logged in")
	return token, nil
}

// Token restores the persisted token. It rejects JWTs that have visibly
// expired so the caller can prompt for a fresh login instead of failing
// deeper in the bootstrap.
func (s *Service) Token(ctx context.Context) (string, error) {
	token, err := s.creds.Get(ctx, credentials.KeyToken)
	if errors.Is(err, credentials.ErrNotFound) {
		return "", ErrNoCredentials
	}
	if err != nil {
		return "", err
	}
	if tokenExpired(token, time.Now()) {
		return "", ErrTokenExpired
	}
	return token, nil
}

// Logout removes the persisted token.
func (s *Service) Logout(ctx context.Context) error {
	return s.creds.Delete(ctx, credentials.KeyToken)
}
