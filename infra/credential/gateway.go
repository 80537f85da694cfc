package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	corecred "github.com/kilianp07/chargeflex/core/credential"
	"github.com/kilianp07/chargeflex/core/logger"
)

// GatewayConfig configures the HTTP verifiable-credential gateway.
type GatewayConfig struct {
	URL            string     `json:"url"`
	TimeoutSeconds int        `json:"timeout_seconds"`
	Auth           AuthConfig `json:"auth"`
}

// HTTPGateway issues credentials through a remote gateway. A credential is
// issued with POST {url}/credentials and updated with
// PUT {url}/credentials/{id}.
type HTTPGateway struct {
	url    string
	client *http.Client
	auth   *clientCred
	log    logger.Logger

	mu  sync.Mutex
	ids map[string]string
}

// NewHTTPGateway returns a gateway client.
func NewHTTPGateway(cfg GatewayConfig, log logger.Logger) (*HTTPGateway, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("credential gateway: url required")
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 5
	}
	g := &HTTPGateway{
		url:    strings.TrimSuffix(cfg.URL, "/"),
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:    logger.OrNop(log),
		ids:    make(map[string]string),
	}
	if cfg.Auth.enabled() {
		g.auth = newClientCred(cfg.Auth)
	}
	return g, nil
}

type credentialRequest struct {
	Subject string `json:"subject"`
	SoC     int    `json:"soc_percent"`
}

// IssueOrUpdate implements credential.Issuer.
func (g *HTTPGateway) IssueOrUpdate(ctx context.Context, userID string, soc int) (corecred.Credential, error) {
	method, url := http.MethodPost, g.url+"/credentials"
	g.mu.Lock()
	id, ok := g.ids[userID]
	g.mu.Unlock()
	if ok {
		method, url = http.MethodPut, g.url+"/credentials/"+id
	}
	body, err := json.Marshal(credentialRequest{Subject: userID, SoC: soc})
	if err != nil {
		return corecred.Credential{}, err
	}

	resp, err := g.do(ctx, method, url, body)
	if err != nil {
		return corecred.Credential{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return corecred.Credential{}, fmt.Errorf("credential gateway: %s %s: status %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var c corecred.Credential
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return corecred.Credential{}, fmt.Errorf("credential gateway: decode: %w", err)
	}
	if c.ID == "" {
		return corecred.Credential{}, fmt.Errorf("credential gateway: response without id")
	}
	c.Updated = ok
	g.mu.Lock()
	g.ids[userID] = c.ID
	g.mu.Unlock()
	g.log.Debugf("credential %s for %s (updated=%v)", c.ID, userID, c.Updated)
	return c, nil
}

// do sends the request once, retrying a single time with a fresh token on 401.
func (g *HTTPGateway) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if g.auth != nil {
			if err := g.auth.SetAuthHeader(ctx, req); err != nil {
				return nil, fmt.Errorf("credential gateway: %w", err)
			}
		}
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("credential gateway: %w", err)
		}
		if resp.StatusCode == http.StatusUnauthorized && g.auth != nil && attempt == 0 {
			resp.Body.Close()
			g.auth.Invalidate()
			continue
		}
		return resp, nil
	}
}
