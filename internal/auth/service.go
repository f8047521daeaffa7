// Package auth grants and revokes inventory sessions. The shop has a single
// shared inventory password; a successful login yields a scoped token backed
// by a Redis session so logout takes effect immediately.
package auth

import (
	"context"
	"fmt"
	"time"

	pkgauth "github.com/tillpoint/tillpoint-backend/pkg/auth"
	"github.com/tillpoint/tillpoint-backend/pkg/config"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

const invalidPasswordMessage = "invalid inventory password"

// LoginResult carries the minted token and its expiry.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, password string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

type passwordVerifier interface {
	VerifyInventoryPassword(ctx context.Context, password string) (bool, error)
}

type sessionManager interface {
	Create(ctx context.Context) (string, error)
	Revoke(ctx context.Context, sessionID string) error
}

type service struct {
	profile passwordVerifier
	session sessionManager
	jwtCfg  config.JWTConfig
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Profile        passwordVerifier
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Profile == nil {
		return nil, fmt.Errorf("profile service is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		profile: params.Profile,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
	}, nil
}

func (s *service) Login(ctx context.Context, password string) (*LoginResult, error) {
	valid, err := s.profile.VerifyInventoryPassword(ctx, password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidPasswordMessage)
	}

	sessionID, err := s.session.Create(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	now := time.Now().UTC()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   now.Add(s.jwtCfg.SessionTTL()),
	}, nil
}

// Logout revokes the Redis session. The JWT itself stays syntactically valid
// until expiry, but the session check rejects it from here on.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := s.session.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}
