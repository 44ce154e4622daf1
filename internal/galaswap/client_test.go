package galaswap

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"galaswapbot/internal/domain"
	"galaswapbot/internal/signing"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	signer, err := signing.NewSigner(testKeyHex)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(baseURL, "client|wallet", signer, logger, Options{
		MaxAttempts:    3,
		RetryDelay:     time.Millisecond,
		RateLimitDelay: 2 * time.Millisecond,
	})
}

func TestGetTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/tokens", r.URL.Path)
		require.Equal(t, "GALA", r.URL.Query().Get("searchprefix"))
		_, _ = w.Write([]byte(`{"tokens":[
			{"symbol":"GALA","collection":"GALA","category":"Unit","type":"none","additionalKey":"none","decimals":8,"currentPrices":{"usd":0.05}},
			{"symbol":"GOSMI","collection":"GOSMI","category":"Unit","type":"none","additionalKey":"none","decimals":8,"currentPrices":{}}
		]}`))
	}))
	defer srv.Close()

	tokens, err := testClient(t, srv.URL).GetTokens(context.Background(), "GALA")
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	require.Equal(t, "GALA", tokens[0].Symbol)
	require.Equal(t, 8, tokens[0].Decimals)
	require.NotNil(t, tokens[0].PriceUSD)
	require.InDelta(t, 0.05, *tokens[0].PriceUSD, 1e-12)
	require.Nil(t, tokens[1].PriceUSD)
}

func TestRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"tokens":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).GetTokens(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, int32(3), calls.Load())
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).GetTokens(context.Background(), "")
	require.Error(t, err)
	require.Equal(t, int32(3), calls.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}

func TestTerminalStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"ErrorKey":"FORBIDDEN"}}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).GetTokens(context.Background(), "")
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load(), "4xx other than 400/404/429 must not be retried")
}

func TestRateLimitMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).GetTokens(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestRetriableClassification(t *testing.T) {
	cases := []struct {
		status    int
		retriable bool
	}{
		{400, true},
		{401, false},
		{403, false},
		{404, true},
		{409, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		e := &APIError{Status: tc.status}
		require.Equal(t, tc.retriable, e.Retriable(), "status %d", tc.status)
	}
}

func TestSignedRequestShapeAndRetryReuse(t *testing.T) {
	var bodies []map[string]any
	var headers []string
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		bodies = append(bodies, body)
		headers = append(headers, r.Header.Get("X-Wallet-Address"))

		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := testClient(t, srv.URL).TerminateSwap(context.Background(), "swap-1")
	require.NoError(t, err)
	require.Len(t, bodies, 2)

	first := bodies[0]
	require.Equal(t, "swap-1", first["swapRequestId"])
	require.NotEmpty(t, first["signerPublicKey"])
	require.NotEmpty(t, first["signature"])
	uniqueKey, _ := first["uniqueKey"].(string)
	require.True(t, strings.HasPrefix(uniqueKey, "galaswap-operation-"), "uniqueKey %q", uniqueKey)

	// A retry of the same logical call resends the identical signed payload,
	// uniqueKey included, so the remote side can dedupe.
	require.Equal(t, first, bodies[1])
	require.Equal(t, []string{"client|wallet", "client|wallet"}, headers)
}

func TestAcceptSwap(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/BatchFillTokenSwap", r.URL.Path)
			raw, _ := io.ReadAll(r.Body)
			var body struct {
				SwapDtos []struct {
					SwapRequestID string `json:"swapRequestId"`
					Uses          string `json:"uses"`
				} `json:"swapDtos"`
			}
			require.NoError(t, json.Unmarshal(raw, &body))
			require.Len(t, body.SwapDtos, 1)
			require.Equal(t, "swap-1", body.SwapDtos[0].SwapRequestID)
			require.Equal(t, "4", body.SwapDtos[0].Uses)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		status, err := testClient(t, srv.URL).AcceptSwap(context.Background(), "swap-1", "4")
		require.NoError(t, err)
		require.Equal(t, StatusAccepted, status)
	})

	t.Run("already used is a benign race", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":{"ErrorKey":"SWAP_ALREADY_USED"}}`))
		}))
		defer srv.Close()

		status, err := testClient(t, srv.URL).AcceptSwap(context.Background(), "swap-1", "4")
		require.NoError(t, err)
		require.Equal(t, StatusAlreadyAccepted, status)
	})
}

func TestGetSwapsByWalletDrainsPagination(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))

		switch calls.Add(1) {
		case 1:
			require.Nil(t, body["bookmark"])
			_, _ = w.Write([]byte(`{"Data":{"nextPageBookMark":"page2","results":[{"swapRequestId":"a"}]}}`))
		default:
			require.Equal(t, "page2", body["bookmark"])
			_, _ = w.Write([]byte(`{"Data":{"nextPageBookMark":"","results":[{"swapRequestId":"b"}]}}`))
		}
	}))
	defer srv.Close()

	swaps, err := testClient(t, srv.URL).GetSwapsByWallet(context.Background(), "client|wallet")
	require.NoError(t, err)
	require.Len(t, swaps, 2)
	require.Equal(t, "a", swaps[0].SwapRequestID)
	require.Equal(t, "b", swaps[1].SwapRequestID)
}

func TestAPIErrorCodeParsing(t *testing.T) {
	e := newAPIError("u", 400, []byte(`{"error":{"ErrorKey":"VALIDATION_FAILED"}}`))
	require.Equal(t, "VALIDATION_FAILED", e.Code)

	e = newAPIError("u", 400, []byte(`{"error":"plain failure"}`))
	require.Equal(t, "plain failure", e.Code)

	e = newAPIError("u", 502, []byte(`<html>gateway</html>`))
	require.Equal(t, "UNKNOWN_ERROR", e.Code)
}
