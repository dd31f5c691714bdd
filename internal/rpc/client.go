// Package rpc implements the JSON-RPC gas price client with endpoint
// fallback. A single logical fetch walks a chain's endpoint list in priority
// order and returns the first well-formed answer.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/gaschecker/internal/health"
	"github.com/yourorg/gaschecker/internal/types"
)

const userAgent = "GasChecker/1.0"

// ErrAllEndpointsFailed is returned (wrapped) when every endpoint in a
// chain's list was tried without a single well-formed answer.
var ErrAllEndpointsFailed = errors.New("all endpoints failed")

// ExhaustedError carries the diagnostics of a fully failed fallback
// sequence. It wraps ErrAllEndpointsFailed so callers can match with
// errors.Is.
type ExhaustedError struct {
	Chain          types.SupportedChain
	EndpointsTried int
	LastErr        error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("chain %s: all %d endpoints failed, last error: %v", e.Chain, e.EndpointsTried, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return ErrAllEndpointsFailed
}

// Quote is a raw gas price observation before classification.
type Quote struct {
	// Gas price in wei
	Wei *big.Int

	// Gas price in gwei
	Gwei float64

	// The endpoint that answered
	Endpoint string

	// How many endpoints were tried, including the one that answered
	Attempts int
}

// Client issues eth_gasPrice calls with per-attempt timeouts and fallback
// across a chain's endpoint list. It holds no per-request state and is safe
// for concurrent use.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	tracker    *health.Tracker
}

// Option configures a Client.
type Option func(*Client)

// WithHealthTracker wires a tracker that receives per-endpoint outcomes.
func WithHealthTracker(t *health.Tracker) Option {
	return func(c *Client) {
		c.tracker = t
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a fallback client with the given per-attempt timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: newHTTPClient(),
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newHTTPClient builds the underlying HTTP client. RetryMax is zero:
// fallback across endpoints replaces per-endpoint retries, so each endpoint
// gets exactly one attempt per fetch.
func newHTTPClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	return rc.StandardClient()
}

// gasPriceRequest is the JSON-RPC 2.0 payload for eth_gasPrice.
type gasPriceRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// gasPriceResponse matches the JSON-RPC 2.0 response envelope.
type gasPriceResponse struct {
	Result string    `json:"result"`
	Error  *rpcError `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// FetchGasPrice walks the chain's endpoints in listed order and returns the
// first successful quote. Individual endpoint failures are logged at debug
// level and recorded against the endpoint, but never surface to the caller;
// only full exhaustion does. There is no backoff between endpoints —
// endpoints are independent, so the client fails fast and moves on.
func (c *Client) FetchGasPrice(ctx context.Context, spec types.ChainSpec) (Quote, error) {
	var lastErr error
	tried := 0

	for i, endpoint := range spec.Endpoints {
		tried++
		wei, err := c.fetchOne(ctx, endpoint)
		if err != nil {
			lastErr = err
			c.recordFailure(endpoint, err)
			logrus.Debugf("Endpoint %s failed for chain %s: %v", endpoint, spec.Chain, err)

			// A cancelled parent context dooms every remaining attempt
			if ctx.Err() != nil {
				break
			}
			continue
		}

		c.recordSuccess(endpoint)
		logrus.Debugf("Chain %s answered by %s after %d attempt(s)", spec.Chain, endpoint, i+1)
		return Quote{
			Wei:      wei,
			Gwei:     WeiToGwei(wei),
			Endpoint: endpoint,
			Attempts: i + 1,
		}, nil
	}

	logrus.Warnf("All %d endpoints exhausted for chain %s: %v", tried, spec.Chain, lastErr)
	return Quote{}, &ExhaustedError{
		Chain:          spec.Chain,
		EndpointsTried: tried,
		LastErr:        lastErr,
	}
}

// fetchOne issues a single eth_gasPrice call against one endpoint with the
// per-attempt timeout applied.
func (c *Client) fetchOne(ctx context.Context, endpoint string) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(gasPriceRequest{
		JSONRPC: "2.0",
		Method:  "eth_gasPrice",
		Params:  []interface{}{},
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("endpoint %s: status %d, body: %s", endpoint, resp.StatusCode, string(body))
	}

	var response gasPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	if response.Result == "" {
		return nil, fmt.Errorf("endpoint %s: empty result", endpoint)
	}

	wei, err := hexutil.DecodeBig(response.Result)
	if err != nil {
		return nil, fmt.Errorf("error parsing gas price %q: %w", response.Result, err)
	}

	return wei, nil
}

// WeiToGwei converts a wei amount to gwei as a float.
func WeiToGwei(wei *big.Int) float64 {
	gwei, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		big.NewFloat(params.GWei),
	).Float64()
	return gwei
}

func (c *Client) recordSuccess(endpoint string) {
	if c.tracker != nil {
		c.tracker.RecordSuccess(endpoint)
	}
}

func (c *Client) recordFailure(endpoint string, err error) {
	if c.tracker != nil {
		c.tracker.RecordFailure(endpoint, err)
	}
}
