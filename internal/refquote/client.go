// Package refquote fetches quotes from an external aggregator so local
// pool pricing can be sanity-checked against a live market. The client is
// optional; when unconfigured the gateway simply omits the comparison.
package refquote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("reference quote http %d", e.StatusCode)
	}
	return fmt.Sprintf("reference quote http %d: %s", e.StatusCode, b)
}

// Quote is the aggregator's answer for an exact-in swap.
type Quote struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct,omitempty"`
}

// OutAmountUint64 parses the aggregator's string-encoded output amount.
func (q *Quote) OutAmountUint64() (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(q.OutAmount), 10, 64)
}

// Fetch asks the aggregator for an exact-in quote.
func (c *Client) Fetch(ctx context.Context, inputMint, outputMint string, amount uint64) (*Quote, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("reference quote base URL is not configured")
	}

	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))

	u := c.BaseURL + "/quote?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out Quote
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode reference quote: %w", err)
	}
	return &out, nil
}
