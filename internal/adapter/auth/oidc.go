package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"weightlog/internal/domain"
)

var (
	// ErrNotOwner indicates a valid login by someone other than the configured owner.
	ErrNotOwner = errors.New("signed-in identity is not the owner")
	// ErrNoDeviceFlow indicates the issuer does not advertise device authorization.
	ErrNoDeviceFlow = errors.New("issuer has no device_authorization_endpoint")
)

// OIDCConfig configures the device-authorization login.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	// Owner is matched against the email claim, or the subject when no email is present.
	Owner string
}

// DeviceNotifier is told where the owner must go to approve the login. It is
// called with a nil response when no login is pending any more.
type DeviceNotifier func(ctx context.Context, prompt string, da *oauth2.DeviceAuthResponse)

// OIDC authenticates the owner with the OAuth 2.0 device authorization grant
// and verifies the returned ID token.
type OIDC struct {
	cfg    OIDCConfig
	notify DeviceNotifier

	mu       sync.Mutex
	provider *oidc.Provider
}

var _ domain.Authenticator = (*OIDC)(nil)

// NewOIDC creates an OIDC authenticator. notify may be nil.
func NewOIDC(cfg OIDCConfig, notify DeviceNotifier) *OIDC {
	if notify == nil {
		notify = func(context.Context, string, *oauth2.DeviceAuthResponse) {}
	}
	return &OIDC{cfg: cfg, notify: notify}
}

func (o *OIDC) discover(ctx context.Context) (*oidc.Provider, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.provider != nil {
		return o.provider, nil
	}
	p, err := oidc.NewProvider(ctx, o.cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	o.provider = p
	return p, nil
}

// CanAuthenticate reports whether the issuer is configured, reachable and
// supports the device flow.
func (o *OIDC) CanAuthenticate(ctx context.Context) (bool, error) {
	if o.cfg.Issuer == "" || o.cfg.ClientID == "" || o.cfg.Owner == "" {
		return false, nil
	}
	p, err := o.discover(ctx)
	if err != nil {
		return false, err
	}
	if p.Endpoint().DeviceAuthURL == "" {
		return false, ErrNoDeviceFlow
	}
	return true, nil
}

// RequestAuthentication runs the device flow to completion and checks that the
// ID token belongs to the owner.
func (o *OIDC) RequestAuthentication(ctx context.Context, prompt string, done func(bool, error)) {
	o.notify(ctx, prompt, nil)
	p, err := o.discover(ctx)
	if err != nil {
		done(false, err)
		return
	}
	oc := &oauth2.Config{
		ClientID:     o.cfg.ClientID,
		ClientSecret: o.cfg.ClientSecret,
		Endpoint:     p.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email"},
	}

	da, err := oc.DeviceAuth(ctx)
	if err != nil {
		done(false, fmt.Errorf("device authorization: %w", err))
		return
	}
	o.notify(ctx, prompt, da)

	tok, err := oc.DeviceAccessToken(ctx, da)
	o.notify(ctx, prompt, nil)
	if err != nil {
		done(false, fmt.Errorf("device token: %w", err))
		return
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok {
		done(false, errors.New("no id_token in token response"))
		return
	}
	idToken, err := p.Verifier(&oidc.Config{ClientID: o.cfg.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		done(false, fmt.Errorf("verify id_token: %w", err))
		return
	}

	var claims struct {
		Email string `json:"email"`
		Sub   string `json:"sub"`
	}
	if err := idToken.Claims(&claims); err != nil {
		done(false, fmt.Errorf("parse claims: %w", err))
		return
	}
	if !ownerMatches(o.cfg.Owner, claims.Email, claims.Sub) {
		done(false, ErrNotOwner)
		return
	}
	done(true, nil)
}

func ownerMatches(owner, email, sub string) bool {
	if email != "" {
		return strings.EqualFold(owner, email)
	}
	return owner == sub
}
