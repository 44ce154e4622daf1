// Package galaswap is the REST client for the GalaSwap marketplace API. Every
// call goes through a fixed-delay retry wrapper; mutating calls are signed
// with the wallet's secp256k1 key and carry a unique request key so the
// remote side can dedupe retried attempts.
package galaswap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"galaswapbot/internal/domain"
	"galaswapbot/internal/signing"
)

const (
	defaultMaxAttempts    = 5
	defaultRetryDelay     = 250 * time.Millisecond
	defaultRateLimitDelay = 10 * time.Second
)

// Options tunes the client. Zero values select the defaults above.
type Options struct {
	HTTPClient     *http.Client
	MaxAttempts    int
	RetryDelay     time.Duration
	RateLimitDelay time.Duration
}

// Client talks to the GalaSwap API on behalf of one wallet.
type Client struct {
	baseURL        string
	wallet         string
	signer         *signing.Signer
	httpClient     *http.Client
	logger         *slog.Logger
	maxAttempts    int
	retryDelay     time.Duration
	rateLimitDelay time.Duration
}

// New creates a Client for the given API root and wallet identity.
func New(baseURL, wallet string, signer *signing.Signer, logger *slog.Logger, opts Options) *Client {
	c := &Client{
		baseURL:        baseURL,
		wallet:         wallet,
		signer:         signer,
		httpClient:     opts.HTTPClient,
		logger:         logger.With(slog.String("component", "galaswap_client")),
		maxAttempts:    opts.MaxAttempts,
		retryDelay:     opts.RetryDelay,
		rateLimitDelay: opts.RateLimitDelay,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}
	if c.rateLimitDelay <= 0 {
		c.rateLimitDelay = defaultRateLimitDelay
	}
	return c
}

// GetTokens lists marketplace tokens. With an empty prefix the trending set
// is returned; otherwise tokens are searched by symbol prefix.
func (c *Client) GetTokens(ctx context.Context, searchPrefix string) ([]domain.TokenInfo, error) {
	path := "/v1/tokens"
	if searchPrefix != "" {
		path += "?searchprefix=" + url.QueryEscape(searchPrefix)
	}

	var resp tokensResponse
	if err := c.do(ctx, http.MethodGet, path, nil, false, &resp); err != nil {
		return nil, fmt.Errorf("galaswap: get tokens: %w", err)
	}

	tokens := make([]domain.TokenInfo, 0, len(resp.Tokens))
	for _, t := range resp.Tokens {
		tokens = append(tokens, t.toDomain())
	}
	return tokens, nil
}

// GetRawBalances returns the wallet's raw balances, locked holds included.
func (c *Client) GetRawBalances(ctx context.Context, wallet string) ([]domain.TokenBalance, error) {
	body := map[string]any{"owner": wallet}

	var resp balancesResponse
	if err := c.do(ctx, http.MethodPost, "/galachain/api/asset/token-contract/FetchBalances", body, false, &resp); err != nil {
		return nil, fmt.Errorf("galaswap: get balances: %w", err)
	}
	return resp.Data, nil
}

// GetAvailableSwaps lists open offers for a pair, from the perspective of the
// counterparty: offers offering offeredClass and wanting wantedClass.
func (c *Client) GetAvailableSwaps(ctx context.Context, offeredClass, wantedClass domain.TokenClassKey) ([]domain.Swap, error) {
	body := map[string]any{
		"offeredTokenClass": offeredClass,
		"wantedTokenClass":  wantedClass,
	}

	var resp availableSwapsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/FetchAvailableTokenSwaps", body, false, &resp); err != nil {
		return nil, fmt.Errorf("galaswap: get available swaps: %w", err)
	}
	return resp.Results, nil
}

// GetSwapsByWallet returns every offer created by the wallet, draining the
// remote pagination bookmark.
func (c *Client) GetSwapsByWallet(ctx context.Context, wallet string) ([]domain.Swap, error) {
	var all []domain.Swap
	bookmark := ""

	for {
		body := map[string]any{"user": wallet}
		if bookmark != "" {
			body["bookmark"] = bookmark
		}

		var resp swapsByUserResponse
		if err := c.do(ctx, http.MethodPost, "/galachain/api/asset/token-contract/FetchTokenSwapsOfferedByUser", body, false, &resp); err != nil {
			return nil, fmt.Errorf("galaswap: get swaps by wallet: %w", err)
		}

		all = append(all, resp.Data.Results...)
		bookmark = resp.Data.NextPageBookMark
		if bookmark == "" {
			return all, nil
		}
	}
}

// AcceptSwap requests that the given offer be filled for uses executions. The
// remote "swap already used" error is an expected race and is surfaced as
// StatusAlreadyAccepted rather than an error.
func (c *Client) AcceptSwap(ctx context.Context, swapRequestID, uses string) (AcceptStatus, error) {
	body := map[string]any{
		"swapDtos": []map[string]any{
			{"swapRequestId": swapRequestID, "uses": uses},
		},
	}

	err := c.do(ctx, http.MethodPost, "/v1/BatchFillTokenSwap", body, true, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == swapAlreadyUsedCode {
			return StatusAlreadyAccepted, nil
		}
		return "", fmt.Errorf("galaswap: accept swap %s: %w", swapRequestID, err)
	}
	return StatusAccepted, nil
}

// CreateSwap publishes a new offer and returns the canonical version the
// remote side created (authoritative for id and timestamps).
func (c *Client) CreateSwap(ctx context.Context, newSwap domain.SwapToCreate) (domain.Swap, error) {
	body := map[string]any{
		"offered": newSwap.Offered,
		"wanted":  newSwap.Wanted,
		"uses":    newSwap.Uses,
	}

	var resp createSwapResponse
	if err := c.do(ctx, http.MethodPost, "/v1/RequestTokenSwap", body, true, &resp); err != nil {
		return domain.Swap{}, fmt.Errorf("galaswap: create swap: %w", err)
	}
	return resp.Data, nil
}

// TerminateSwap cancels one of the wallet's own offers. Absence from the next
// fetch is the confirmation; there is nothing to persist locally.
func (c *Client) TerminateSwap(ctx context.Context, swapRequestID string) error {
	body := map[string]any{"swapRequestId": swapRequestID}

	if err := c.do(ctx, http.MethodPost, "/v1/TerminateTokenSwap", body, true, nil); err != nil {
		return fmt.Errorf("galaswap: terminate swap %s: %w", swapRequestID, err)
	}
	return nil
}

// do builds the request payload (signing it once when required), then sends
// it under the retry policy and decodes the response into out when non-nil.
//
// Signing happens before the retry loop so every attempt of one logical call
// carries the same uniqueKey; the remote side relies on that to dedupe
// retried requests.
func (c *Client) do(ctx context.Context, method, path string, body any, signed bool, out any) error {
	var payload []byte

	if body != nil {
		toSend := body
		if signed {
			raw, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("marshal request body: %w", err)
			}
			var fields map[string]any
			if err := json.Unmarshal(raw, &fields); err != nil {
				return fmt.Errorf("rebuild request body: %w", err)
			}
			fields["signerPublicKey"] = c.signer.PublicKey()
			fields["uniqueKey"] = "galaswap-operation-" + uuid.NewString()

			signedBody, err := c.signer.SignObject(fields)
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrSigningFailed, err)
			}
			toSend = signedBody
		}

		var err error
		payload, err = json.Marshal(toSend)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	respBody, err := c.sendWithRetry(ctx, method, path, payload, signed)
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response from %s: %w", path, err)
		}
	}
	return nil
}

// sendWithRetry sends the identical payload up to maxAttempts times with a
// fixed delay between attempts, waiting longer after a 429. Terminal 4xx
// responses abort immediately.
func (c *Client) sendWithRetry(ctx context.Context, method, path string, payload []byte, signed bool) ([]byte, error) {
	uri := c.baseURL + path
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		respBody, err := c.send(ctx, method, uri, payload, signed)
		if err == nil {
			return respBody, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retriable() {
			return nil, err
		}

		if attempt == c.maxAttempts {
			break
		}

		c.logger.Warn("request failed, retrying",
			slog.String("uri", uri),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		delay := c.retryDelay
		if apiErr != nil && apiErr.Status == http.StatusTooManyRequests {
			c.logger.Warn("rate limited", slog.String("uri", uri))
			delay = c.rateLimitDelay
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

func (c *Client) send(ctx context.Context, method, uri string, payload []byte, signed bool) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signed {
		req.Header.Set("X-Wallet-Address", c.wallet)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(uri, resp.StatusCode, respBody)
	}
	return respBody, nil
}
