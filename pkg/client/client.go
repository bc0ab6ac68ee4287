package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/guava-nexus/nexus/internal/auth"
)

// HashNameInfo is the public hashname record returned by lookups.
type HashNameInfo struct {
	ID           int64     `json:"hashname_id"`
	Handle       string    `json:"handle"`
	OwnerAddress *string   `json:"owner_address"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClaimResult is the outcome of a hashname claim.
type ClaimResult struct {
	OK           bool   `json:"ok"`
	Handle       string `json:"handle"`
	OwnerAddress string `json:"owner_address"`
	Outcome      string `json:"outcome"`
	Message      string `json:"message"`
}

// RequestResult is the outcome of a hashroot attachment request. When
// AlreadyAttached is set the pair is already approved and no request row
// exists; otherwise RequestID identifies the pending (possibly pre-existing)
// request.
type RequestResult struct {
	AlreadyAttached bool   `json:"already_attached"`
	RequestID       int64  `json:"request_id"`
	Status          string `json:"status"`
	SeedID          int64  `json:"seed_id"`
	Handle          string `json:"hashname_handle"`
}

// ResolveResult is the outcome of resolving a hashroot request.
type ResolveResult struct {
	Status string `json:"status"`
	SeedID int64  `json:"seed_id"`
	Handle string `json:"hashname_handle"`
}

// SeedInfo is a seed record with its latest content.
type SeedInfo struct {
	ID            int64     `json:"seed_id"`
	AuthorAddress *string   `json:"author_address"`
	Content       string    `json:"content"`
	LatestVersion int       `json:"latest_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is the Guava Nexus SDK entry point. Signed calls require a wallet;
// read-only calls work without one.
type Client struct {
	baseURL    string
	httpClient *http.Client
	wallet     *Wallet
	cache      *lookupCache
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithWallet attaches a signing wallet, enabling the authenticated calls.
func WithWallet(w *Wallet) Option {
	return func(c *Client) error {
		c.wallet = w
		return nil
	}
}

// WithPrivateKey is shorthand for WithWallet(NewWallet(hexKey)).
func WithPrivateKey(hexKey string) Option {
	return func(c *Client) error {
		w, err := NewWallet(hexKey)
		if err != nil {
			return err
		}
		c.wallet = w
		return nil
	}
}

// WithCacheTTL enables in-memory caching of hashname lookups with the
// given TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cache = newLookupCache(ttl)
		return nil
	}
}

// New creates a Client for the server at baseURL.
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithPrivateKey(os.Getenv("NEXUS_PRIVATE_KEY")),
//	    client.WithCacheTTL(30*time.Second),
//	)
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Wallet returns the configured signing wallet, or nil.
func (c *Client) Wallet() *Wallet {
	return c.wallet
}

// FetchNonce obtains a fresh single-use nonce for the given address.
func (c *Client) FetchNonce(ctx context.Context, address string) (string, error) {
	body, err := c.post(ctx, "/api/auth/nonce", map[string]string{"address": address})
	if err != nil {
		return "", err
	}
	var resp struct {
		Nonce string `json:"nonce"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode nonce response: %w", err)
	}
	return resp.Nonce, nil
}

// ClaimHashName claims an unowned hashname for the wallet. Claiming a
// hashname the wallet already owns succeeds with outcome "already_owned".
func (c *Client) ClaimHashName(ctx context.Context, handle string) (*ClaimResult, error) {
	payload := map[string]any{"handle": handle}
	if err := c.signInto(ctx, payload, "claim_hashname", nil); err != nil {
		return nil, err
	}

	body, err := c.post(ctx, "/api/hashnames/claim", payload)
	if err != nil {
		return nil, err
	}
	var result ClaimResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode claim response: %w", err)
	}
	return &result, nil
}

// RequestHashRoot asks the hashname owner to attach one of the wallet's
// seeds. The call is idempotent while a request is pending.
func (c *Client) RequestHashRoot(ctx context.Context, seedID int64, handle string) (*RequestResult, error) {
	payload := map[string]any{"seed_id": seedID, "hashname_handle": handle}
	if err := c.signInto(ctx, payload, "request_hashroot", &seedID); err != nil {
		return nil, err
	}

	body, err := c.post(ctx, "/api/hashroots/request", payload)
	if err != nil {
		return nil, err
	}
	var result RequestResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode request response: %w", err)
	}
	return &result, nil
}

// ResolveHashRoot accepts or rejects a pending request against a hashname
// the wallet owns. action is "accept" or "reject"; note is optional.
func (c *Client) ResolveHashRoot(ctx context.Context, requestID int64, action, note string) (*ResolveResult, error) {
	payload := map[string]any{"request_id": requestID, "action": action}
	if note != "" {
		payload["note"] = note
	}
	if err := c.signInto(ctx, payload, "resolve_hashroot", &requestID); err != nil {
		return nil, err
	}

	body, err := c.post(ctx, "/api/hashroots/resolve", payload)
	if err != nil {
		return nil, err
	}
	var result ResolveResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode resolve response: %w", err)
	}
	return &result, nil
}

// UpdateSeed publishes a new version of a seed the wallet authored.
func (c *Client) UpdateSeed(ctx context.Context, seedID int64, content string) (*SeedInfo, error) {
	payload := map[string]any{"content": content}
	if err := c.signInto(ctx, payload, "update_seed", &seedID); err != nil {
		return nil, err
	}

	body, err := c.post(ctx, fmt.Sprintf("/api/seeds/%d/update", seedID), payload)
	if err != nil {
		return nil, err
	}
	var seed SeedInfo
	if err := json.Unmarshal(body, &seed); err != nil {
		return nil, fmt.Errorf("decode seed response: %w", err)
	}
	return &seed, nil
}

// CreateSeed inserts a new seed attributed to the wallet (or unattributed
// when no wallet is configured).
func (c *Client) CreateSeed(ctx context.Context, content string) (*SeedInfo, error) {
	payload := map[string]any{"content": content}
	if c.wallet != nil {
		payload["author_address"] = c.wallet.Address()
	}

	body, err := c.post(ctx, "/api/seeds", payload)
	if err != nil {
		return nil, err
	}
	var seed SeedInfo
	if err := json.Unmarshal(body, &seed); err != nil {
		return nil, fmt.Errorf("decode seed response: %w", err)
	}
	return &seed, nil
}

// GetSeed fetches a seed by id.
func (c *Client) GetSeed(ctx context.Context, seedID int64) (*SeedInfo, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/seeds/%d", seedID))
	if err != nil {
		return nil, err
	}
	var seed SeedInfo
	if err := json.Unmarshal(body, &seed); err != nil {
		return nil, fmt.Errorf("decode seed response: %w", err)
	}
	return &seed, nil
}

// GetHashName fetches public hashname info by handle, consulting the
// lookup cache when one is configured.
func (c *Client) GetHashName(ctx context.Context, handle string) (*HashNameInfo, error) {
	if c.cache != nil {
		if hn, ok := c.cache.get(handle); ok {
			return hn, nil
		}
	}

	body, err := c.get(ctx, "/api/hashnames/"+url.PathEscape(handle))
	if err != nil {
		return nil, err
	}
	var hn HashNameInfo
	if err := json.Unmarshal(body, &hn); err != nil {
		return nil, fmt.Errorf("decode hashname response: %w", err)
	}

	if c.cache != nil {
		c.cache.set(handle, &hn)
	}
	return &hn, nil
}

// signInto fetches a nonce, signs the canonical message for the action,
// and merges the auth fields into payload.
func (c *Client) signInto(ctx context.Context, payload map[string]any, action string, subjectID *int64) error {
	if c.wallet == nil {
		return fmt.Errorf("%s requires a wallet: configure WithWallet or WithPrivateKey", action)
	}

	address := c.wallet.Address()
	nonce, err := c.FetchNonce(ctx, address)
	if err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}

	timestamp := time.Now().UnixMilli()
	message := auth.Challenge{
		Address:   address,
		Action:    action,
		Nonce:     nonce,
		Timestamp: timestamp,
		SubjectID: subjectID,
	}.Message()

	payload["address"] = address
	payload["signature"] = c.wallet.Sign(message)
	payload["nonce"] = nonce
	payload["timestamp"] = timestamp
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// do executes an HTTP request and maps non-2xx responses onto *APIError
// with the server's error message.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		msg := string(body)
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}

// --- simple in-memory lookup cache ---

type cacheEntry struct {
	hashname  *HashNameInfo
	expiresAt time.Time
}

type lookupCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newLookupCache(ttl time.Duration) *lookupCache {
	return &lookupCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (lc *lookupCache) get(key string) (*HashNameInfo, bool) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	e, ok := lc.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.hashname, true
}

func (lc *lookupCache) set(key string, hn *HashNameInfo) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.entries[key] = &cacheEntry{hashname: hn, expiresAt: time.Now().Add(lc.ttl)}
}
