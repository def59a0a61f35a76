// Package creds manages per-user storage credentials, refreshing expired
// tokens transparently.
package creds

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnauthenticated means the user has no usable credentials and must
// reconnect their storage account. It is not a transient failure.
var ErrUnauthenticated = errors.New("creds: user is not authenticated")

// Token is an OAuth-style credential pair.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

func (t Token) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && !now.Before(t.Expiry)
}

// TokenStore persists tokens by user.
type TokenStore interface {
	SaveToken(ctx context.Context, userID string, token Token) error
	GetToken(ctx context.Context, userID string) (Token, error)
}

// Refresher exchanges a refresh token for a fresh access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Token, error)
}

// Provider hands out a valid access token for a user, or
// ErrUnauthenticated when the user never connected or the credential
// cannot be renewed.
type Provider interface {
	AccessToken(ctx context.Context, userID string) (string, error)
}

// StoreProvider reads tokens from a TokenStore and refreshes them through
// a Refresher when expired, persisting the renewed token.
type StoreProvider struct {
	Store     TokenStore
	Refresher Refresher
	Now       func() time.Time
}

func NewStoreProvider(store TokenStore, refresher Refresher) *StoreProvider {
	return &StoreProvider{Store: store, Refresher: refresher, Now: time.Now}
}

func (p *StoreProvider) AccessToken(ctx context.Context, userID string) (string, error) {
	token, err := p.Store.GetToken(ctx, userID)
	if err != nil {
		return "", err
	}
	if !token.Expired(p.Now()) {
		return token.AccessToken, nil
	}
	if token.RefreshToken == "" || p.Refresher == nil {
		return "", ErrUnauthenticated
	}
	renewed, err := p.Refresher.Refresh(ctx, token.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh token for %s: %w", userID, err)
	}
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = token.RefreshToken
	}
	if err := p.Store.SaveToken(ctx, userID, renewed); err != nil {
		return "", fmt.Errorf("persist refreshed token for %s: %w", userID, err)
	}
	return renewed.AccessToken, nil
}

// Static is a dev-mode provider that accepts every user.
type Static struct {
	Token string
}

func (s Static) AccessToken(_ context.Context, _ string) (string, error) {
	if s.Token == "" {
		return "dev-token", nil
	}
	return s.Token, nil
}
