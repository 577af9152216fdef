// Package client is the HTTP client for the gateway API, used by the CLI
// and integration tooling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is an HTTP client with retry and timeout support for the gateway
// API. Only idempotent requests (GETs) are retried; mutating calls run
// exactly once.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger
}

// ClientConfig holds configuration for the API client
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// NewClient creates a new API client with retry support
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}
}

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api http %d", e.StatusCode)
	}
	return fmt.Sprintf("api http %d: %s", e.StatusCode, e.Message)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"path":    path,
			}).Debug("retrying API call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2 // exponential backoff
		}

		if err := c.do(ctx, http.MethodGet, u, nil, result); err != nil {
			lastErr = err
			// Client errors do not improve on retry
			if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
				return err
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, data, result)
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, result any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &envelope)
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// Health checks the gateway.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.get(ctx, "/v1/health", nil, &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("gateway reports unhealthy")
	}
	return nil
}

// CreateMint registers a mint.
func (c *Client) CreateMint(ctx context.Context, address, authority string, decimals uint8, result any) error {
	return c.post(ctx, "/v1/mints", map[string]any{
		"address":   address,
		"authority": authority,
		"decimals":  decimals,
	}, result)
}

// CreateAccount creates a token account.
func (c *Client) CreateAccount(ctx context.Context, address, mint, owner string, result any) error {
	return c.post(ctx, "/v1/accounts", map[string]any{
		"address": address,
		"mint":    mint,
		"owner":   owner,
	}, result)
}

// MintTo issues supply to an account.
func (c *Client) MintTo(ctx context.Context, mint, destination, authority string, amount uint64, result any) error {
	return c.post(ctx, "/v1/mints/"+mint+"/mint-to", map[string]any{
		"destination": destination,
		"amount":      amount,
		"authority":   authority,
	}, result)
}

// CreatePool initializes the pool for a pair.
func (c *Client) CreatePool(ctx context.Context, mintA, mintB string, result any) error {
	return c.post(ctx, "/v1/pools", map[string]any{
		"mint_a": mintA,
		"mint_b": mintB,
	}, result)
}

// Quote prices a swap without executing it.
func (c *Client) Quote(ctx context.Context, pool, sourceMint string, amount uint64, result any) error {
	q := url.Values{}
	q.Set("pool", pool)
	q.Set("source_mint", sourceMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	return c.get(ctx, "/v1/quote", q, result)
}

// Swap executes an exact-in swap.
func (c *Client) Swap(ctx context.Context, caller, pool, source, destination string, amountIn, minAmountOut uint64, result any) error {
	return c.post(ctx, "/v1/swap", map[string]any{
		"caller":         caller,
		"pool":           pool,
		"source":         source,
		"destination":    destination,
		"amount_in":      amountIn,
		"min_amount_out": minAmountOut,
	}, result)
}

// AddLiquidity deposits both sides of a pair.
func (c *Client) AddLiquidity(ctx context.Context, caller, pool, sourceLow, sourceHigh string, amountLow, amountHigh uint64, result any) error {
	return c.post(ctx, "/v1/liquidity", map[string]any{
		"caller":      caller,
		"pool":        pool,
		"source_low":  sourceLow,
		"source_high": sourceHigh,
		"amount_low":  amountLow,
		"amount_high": amountHigh,
	}, result)
}

// Transfer moves tokens between two accounts.
func (c *Client) Transfer(ctx context.Context, authority, from, to string, amount uint64) error {
	return c.post(ctx, "/v1/transfer", map[string]any{
		"authority": authority,
		"from":      from,
		"to":        to,
		"amount":    amount,
	}, nil)
}

// RecentSwaps fetches the recent swap list.
func (c *Client) RecentSwaps(ctx context.Context, limit int, result any) error {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.get(ctx, "/v1/swaps/recent", q, result)
}

// Pools lists all pool records.
func (c *Client) Pools(ctx context.Context, result any) error {
	return c.get(ctx, "/v1/pools", nil, result)
}

// GetMint reads a mint record.
func (c *Client) GetMint(ctx context.Context, address string, result any) error {
	return c.get(ctx, "/v1/mints/"+address, nil, result)
}

// GetAccount reads a token account, balance included.
func (c *Client) GetAccount(ctx context.Context, address string, result any) error {
	return c.get(ctx, "/v1/accounts/"+address, nil, result)
}

// GetPool reads one pool record.
func (c *Client) GetPool(ctx context.Context, address string, result any) error {
	return c.get(ctx, "/v1/pools/"+address, nil, result)
}

// Price reads the last execution price for a canonical pair label.
func (c *Client) Price(ctx context.Context, pair string, result any) error {
	q := url.Values{}
	q.Set("pair", pair)
	return c.get(ctx, "/v1/prices", q, result)
}
