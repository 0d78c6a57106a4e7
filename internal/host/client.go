package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/session_layer/pkg/logger"
)

// ErrNoBridge indicates that no host bridge is configured at all.
var ErrNoBridge = errors.New("host bridge not configured")

// ErrSessionExpired indicates the host session token has expired and an
// authenticated fetch cannot succeed.
var ErrSessionExpired = errors.New("host session token expired")

const maxResponseBytes = 4 << 20

// ClientConfig configures the bridge client.
type ClientConfig struct {
	BaseURL      string
	SessionToken string
	CallTimeout  time.Duration
}

// Client talks to the host platform bridge over HTTP. All calls apply the
// configured per-call timeout on top of the caller's context.
type Client struct {
	baseURL      string
	sessionToken string
	callTimeout  time.Duration
	httpClient   *http.Client
	log          *logger.Logger
	rpcID        atomic.Int64
}

// NewClient creates a bridge client. A nil logger defaults to a plain one.
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.New(logger.LoggingConfig{})
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		sessionToken: cfg.SessionToken,
		callTimeout:  timeout,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log,
	}
}

// IsEmbedded performs the host platform runtime check. A negative result is
// returned as (false, nil); transport failures are returned as errors for the
// caller to classify.
func (c *Client) IsEmbedded(ctx context.Context) (bool, error) {
	if c.baseURL == "" {
		return false, nil
	}

	var out struct {
		Embedded bool `json:"embedded"`
	}
	if err := c.getJSON(ctx, "/host/v1/embedded", &out); err != nil {
		return false, fmt.Errorf("embedded check: %w", err)
	}
	return out.Embedded, nil
}

// GetContext fetches the host identity context. The returned context's User is
// nil when the host has no authenticated user.
func (c *Client) GetContext(ctx context.Context) (*UserContext, error) {
	if c.baseURL == "" {
		return nil, ErrNoBridge
	}

	var out UserContext
	if err := c.getJSON(ctx, "/host/v1/context", &out); err != nil {
		return nil, fmt.Errorf("host context: %w", err)
	}
	return &out, nil
}

// AuthenticatedFetch issues a GET against an application-internal path with
// the host session token attached. The token's expiry claim is checked first
// so an obviously dead session fails fast without a round trip.
func (c *Client) AuthenticatedFetch(ctx context.Context, path string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNoBridge
	}
	if c.sessionToken == "" {
		return nil, errors.New("no host session token")
	}
	if expired, err := tokenExpired(c.sessionToken); err == nil && expired {
		return nil, ErrSessionExpired
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.sessionToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authenticated fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("authenticated fetch %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// Request issues a JSON-RPC shaped call against the injected wallet provider.
// It returns the raw result for the caller to decode.
func (c *Client) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, ErrNoBridge
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.rpcID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/host/v1/wallet", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet request %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("wallet request %s: status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// Ready notifies the host that the UI may be shown. Fire and forget: failures
// are logged, never returned.
func (c *Client) Ready(ctx context.Context) {
	if c.baseURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/host/v1/ready", nil)
	if err != nil {
		c.log.WithError(err).Warn("readiness signal: create request")
		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("readiness signal failed")
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		c.log.Warnf("readiness signal: status %d", resp.StatusCode)
	}
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// tokenExpired decodes the token's claims without verifying the signature; the
// bridge verifies server-side, this only gates obviously stale sessions.
func tokenExpired(token string) (bool, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, err
	}
	return time.Now().After(exp.Time), nil
}
