package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Profile is the resolved identity an OAuth provider hands back after a
// successful exchange. This is the ONLY thing the service layer sees —
// all provider network traffic stays inside this file, so the account
// resolution logic never depends on Google or Apple specifics.
type Profile struct {
	ProviderID  string // the provider's stable user identifier
	Email       string // may be empty (user can withhold it)
	DisplayName string // may be empty (Apple rarely supplies one)
}

// Provider is the common capability of the two supported identity
// providers. There are exactly two; selection happens by explicit tag in
// the router and service, not by open-ended registration.
type Provider interface {
	// AuthURL returns where to send the user's browser, carrying the
	// anti-CSRF state value.
	AuthURL(state string) string
	// Exchange trades the callback's authorization code for a Profile.
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// ---------------------------------------------------------------------------
// Google

// googleUserinfo is the slice of Google's userinfo response we care about.
type googleUserinfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleProvider implements the Authorization Code flow against Google.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider builds a GoogleProvider from OAuth app credentials.
// The callbackURL must exactly match the redirect URI registered in the
// Google Cloud console.
//
// The "openid" scope is included alongside profile and email — modern
// Google OAuth clients are expected to request it.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns Google's authorization URL. prompt=select_account forces
// the account chooser so users on shared machines don't get silently logged
// in with the wrong account.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades the code for a token, then calls Google's userinfo
// endpoint for the profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging Google code: %w", err)
	}

	// config.Client returns an *http.Client that injects the bearer token.
	client := p.config.Client(ctx, token)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo returned status %d", resp.StatusCode)
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo: %w", err)
	}
	if info.ID == "" {
		return nil, errors.New("auth: Google returned an empty user id")
	}

	return &Profile{
		ProviderID:  info.ID,
		Email:       info.Email,
		DisplayName: info.Name,
	}, nil
}

// ---------------------------------------------------------------------------
// Apple

// appleEndpoint — x/oauth2 ships no Apple preset, but Sign in with Apple is
// a standard authorization-code flow with these two URLs.
var appleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://appleid.apple.com/auth/authorize",
	TokenURL: "https://appleid.apple.com/auth/token",
}

// AppleProvider implements Sign in with Apple.
//
// Apple's token response carries the user's identity as an id_token (a JWT)
// rather than via a userinfo endpoint; there is nothing to call after the
// exchange. Apple also only supplies a display name on the very first
// authorization, so Profile.DisplayName is usually empty and account
// creation falls back to a generated name.
type AppleProvider struct {
	config *oauth2.Config
}

// NewAppleProvider builds an AppleProvider. clientSecret is the short-lived
// ES256 client-secret JWT Apple requires (minted from the developer key
// outside this package — it rotates, credentials stay in config).
func NewAppleProvider(clientID, clientSecret, callbackURL string) *AppleProvider {
	return &AppleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"name", "email"},
			Endpoint:     appleEndpoint,
		},
	}
}

func (p *AppleProvider) AuthURL(state string) string {
	// response_mode=form_post: Apple POSTs the callback when name/email
	// scopes are requested, it will not redirect with query params.
	return p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_mode", "form_post"),
	)
}

// appleIDClaims is the subset of Apple's id_token payload we read.
type appleIDClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Exchange trades the code for a token set and reads the identity out of
// the bundled id_token.
//
// The id_token arrives over TLS straight from Apple's token endpoint in a
// server-to-server exchange authenticated by our client secret, so its
// claims are read without a JWKS signature check.
func (p *AppleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging Apple code: %w", err)
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, errors.New("auth: Apple token response missing id_token")
	}

	var claims appleIDClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return nil, fmt.Errorf("auth: parsing Apple id_token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("auth: Apple id_token has no subject")
	}

	return &Profile{
		ProviderID: claims.Subject,
		Email:      claims.Email,
		// DisplayName intentionally left empty — Apple only sends the name
		// in the first-authorization form payload, not in the id_token.
	}, nil
}
