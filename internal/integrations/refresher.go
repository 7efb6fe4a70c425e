package integrations

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/withmetravel/withme-backend/pkg/config"
	"github.com/withmetravel/withme-backend/pkg/enums"
)

// TokenRefresher exchanges a refresh token for a new access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, provider enums.IntegrationProvider, refreshToken string) (*oauth2.Token, error)
}

// OAuthRefresher refreshes through the provider's OAuth2 token endpoint.
type OAuthRefresher struct {
	configs map[enums.IntegrationProvider]*oauth2.Config
}

func NewOAuthRefresher(splitwise config.SplitwiseConfig) *OAuthRefresher {
	r := &OAuthRefresher{configs: map[enums.IntegrationProvider]*oauth2.Config{}}
	if splitwise.Enabled() {
		r.configs[enums.IntegrationSplitwise] = &oauth2.Config{
			ClientID:     splitwise.ClientID,
			ClientSecret: splitwise.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  splitwise.AuthURL,
				TokenURL: splitwise.TokenURL,
			},
		}
	}
	return r
}

func (r *OAuthRefresher) Refresh(ctx context.Context, provider enums.IntegrationProvider, refreshToken string) (*oauth2.Token, error) {
	cfg, ok := r.configs[provider]
	if !ok {
		return nil, fmt.Errorf("no oauth client configured for %s", provider)
	}
	// an already-expired token forces the source to hit the token endpoint
	stale := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	return cfg.TokenSource(ctx, stale).Token()
}
