package credential

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AuthConfig holds the OAuth2 client credentials of the gateway.
type AuthConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

func (c AuthConfig) enabled() bool { return c.TokenURL != "" }

func (c AuthConfig) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}

// clientCred caches an access token and refreshes it when it expires.
type clientCred struct {
	conf  clientcredentials.Config
	mu    sync.Mutex
	token *oauth2.Token
}

func newClientCred(cfg AuthConfig) *clientCred {
	return &clientCred{conf: cfg.toOauth2Config()}
}

// SetAuthHeader sets the bearer token on r, fetching a new one if needed.
func (c *clientCred) SetAuthHeader(ctx context.Context, r *http.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil || !c.token.Valid() {
		if err := c.fetch(ctx); err != nil {
			return err
		}
	}
	c.token.SetAuthHeader(r)
	return nil
}

// Invalidate drops the cached token so the next request fetches a new one.
func (c *clientCred) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

func (c *clientCred) fetch(ctx context.Context) error {
	tok, err := c.conf.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	c.token = tok
	return nil
}
