package documents

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// TokenSource hands out bearer tokens for the custody API. Refresh discards
// any cached access token and exchanges the refresh token again.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// OAuthTokens is a refresh-token backed TokenSource.
type OAuthTokens struct {
	mu           sync.Mutex
	cfg          *oauth2.Config
	refreshToken string
	src          oauth2.TokenSource
	base         context.Context
}

func NewOAuthTokens(clientID, clientSecret, tokenURL, refreshToken string) *OAuthTokens {
	return &OAuthTokens{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		refreshToken: refreshToken,
		// The source outlives any single request, so it must not hold a request context.
		base: context.Background(),
	}
}

func (o *OAuthTokens) Token(_ context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.src == nil {
		o.src = o.cfg.TokenSource(o.base, &oauth2.Token{RefreshToken: o.refreshToken})
	}
	return o.fetch()
}

func (o *OAuthTokens) Refresh(_ context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.src = o.cfg.TokenSource(o.base, &oauth2.Token{RefreshToken: o.refreshToken})
	return o.fetch()
}

func (o *OAuthTokens) fetch() (string, error) {
	tok, err := o.src.Token()
	if err != nil {
		return "", fmt.Errorf("obtain custody token: %w", err)
	}
	// Providers may rotate the refresh token.
	if tok.RefreshToken != "" {
		o.refreshToken = tok.RefreshToken
	}
	return tok.AccessToken, nil
}
