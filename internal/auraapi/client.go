package auraapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/youruser/gemdeck/internal/cards"
	"github.com/youruser/gemdeck/internal/deck"
)

const (
	DefaultBaseURL = "https://auragem.zeabur.app/api"

	requestTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// Options configures a Client. Zero values pick the defaults.
type Options struct {
	BaseURL string
	// RequestsPerSecond caps outbound calls; 0 means 10/s.
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client talks to the Aura game server. It never retries on its own.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	log         *slog.Logger
}

func NewClient(opt Options) *Client {
	base := strings.TrimRight(opt.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	rps := opt.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	hc := opt.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: requestTimeout}
	}
	lg := opt.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Client{
		baseURL:     base,
		httpClient:  hc,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:         lg.With(slog.String("component", "auraapi")),
	}
}

// IssueNonce asks for a one-time challenge to sign with a wallet.
func (c *Client) IssueNonce(ctx context.Context) (string, error) {
	var out nonceResponse
	if err := c.do(ctx, call{op: "issue nonce", method: http.MethodPost, path: "/login", body: struct{}{}, fallback: "Failed to get nonce"}, &out); err != nil {
		return "", err
	}
	if out.Nonce == "" {
		return "", &APIError{Op: "issue nonce", Status: http.StatusOK, Message: "Failed to get nonce"}
	}
	return out.Nonce, nil
}

// LoginWithWallet exchanges a signed nonce for a session token. name is sent
// only when non-empty and names a first-time account.
func (c *Client) LoginWithWallet(ctx context.Context, address, signature, name string) (Login, error) {
	var out Login
	req := walletLoginRequest{WalletAddress: address, Signature: signature, Name: name}
	err := c.do(ctx, call{op: "wallet login", method: http.MethodPost, path: "/login", body: req, fallback: "Login failed"}, &out)
	return out, err
}

func (c *Client) LoginWithPassword(ctx context.Context, username, password string) (Login, error) {
	var out Login
	req := credentials{Username: username, Password: password}
	err := c.do(ctx, call{op: "password login", method: http.MethodPost, path: "/login/password", body: req, fallback: "Login failed"}, &out)
	return out, err
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	req := credentials{Username: username, Password: password}
	return c.do(ctx, call{op: "register", method: http.MethodPost, path: "/register", body: req, fallback: "Registration failed"}, nil)
}

func (c *Client) FetchOwnedCards(ctx context.Context, token string) ([]cards.Card, error) {
	var out []cards.Card
	err := c.do(ctx, call{op: "fetch gems", method: http.MethodGet, path: "/user/gems", token: token, fallback: "Failed to get gems"}, &out)
	return out, err
}

// FetchDeck returns the persisted deck; it may be shorter than deck.Size.
func (c *Client) FetchDeck(ctx context.Context, token string) (deck.Deck, error) {
	var out deckResponse
	if err := c.do(ctx, call{op: "fetch deck", method: http.MethodGet, path: "/user/gem-deck", token: token, fallback: "Failed to get gem deck"}, &out); err != nil {
		return nil, err
	}
	return deck.Deck(out.Deck), nil
}

// ReplaceDeck stores d as the user's deck and returns the deck the server accepted.
func (c *Client) ReplaceDeck(ctx context.Context, token string, d deck.Deck) (deck.Deck, error) {
	var out deckResponse
	req := replaceDeckRequest{Gems: []int(d.Clone())}
	if err := c.do(ctx, call{op: "replace deck", method: http.MethodPost, path: "/user/gem-deck", token: token, body: req, fallback: "Failed to update gem deck"}, &out); err != nil {
		return nil, err
	}
	return deck.Deck(out.Deck), nil
}

// RequestWalletBind returns the nonce the wallet must sign to be linked.
func (c *Client) RequestWalletBind(ctx context.Context, token, address string) (string, error) {
	var out nonceResponse
	req := walletRequest{WalletAddress: address}
	if err := c.do(ctx, call{op: "request wallet bind", method: http.MethodPost, path: "/user/wallet/bind", token: token, body: req, fallback: "Cannot get nonce"}, &out); err != nil {
		return "", err
	}
	if out.Nonce == "" {
		return "", &APIError{Op: "request wallet bind", Status: http.StatusOK, Message: "Cannot get nonce"}
	}
	return out.Nonce, nil
}

func (c *Client) ConfirmWalletBind(ctx context.Context, token, address, signature string) error {
	req := walletRequest{WalletAddress: address, Signature: signature}
	return c.do(ctx, call{op: "confirm wallet bind", method: http.MethodPost, path: "/user/wallet/bind/confirm", token: token, body: req, fallback: "Failed to bind wallet"}, nil)
}

func (c *Client) UnbindWallet(ctx context.Context, token, address string) error {
	req := walletRequest{WalletAddress: address}
	return c.do(ctx, call{op: "unbind wallet", method: http.MethodPost, path: "/user/wallet/unbind", token: token, body: req, fallback: "Failed to unbind wallet"}, nil)
}

type call struct {
	op       string
	method   string
	path     string
	token    string
	body     any
	fallback string
}

// do sends one request and decodes a 2xx body into result when result is non-nil.
func (c *Client) do(ctx context.Context, cl call, result any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", cl.op, err)
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed", slog.String("op", cl.op), slog.Any("error", err))
		return unreachable(cl.op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return unreachable(cl.op, err)
	}
	c.log.Debug("request done",
		slog.String("op", cl.op),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: cl.op, Status: resp.StatusCode, Message: errorMessage(raw, cl.fallback)}
	}
	if result == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return &APIError{Op: cl.op, Status: resp.StatusCode, Message: cl.fallback}
	}
	return nil
}

func errorMessage(raw []byte, fallback string) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	return fallback
}
