// Package stellar implements the ledger client against Horizon, the
// Stellar REST API, on top of the Stellar Go SDK. It handles key
// derivation, account state, payment history, native payments, and
// Friendbot funding on testnet.
package stellar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/sony/gobreaker"

	"github.com/mrz1836/caelus/internal/chain"
	"github.com/mrz1836/caelus/internal/metrics"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

const (
	// DefaultTestnetURL is the public SDF testnet Horizon.
	DefaultTestnetURL = "https://horizon-testnet.stellar.org"

	// DefaultPublicURL is the public SDF mainnet Horizon.
	DefaultPublicURL = "https://horizon.stellar.org"

	// DefaultFriendbotURL funds testnet accounts.
	DefaultFriendbotURL = "https://friendbot.stellar.org"

	// defaultTimeout is the default HTTP request timeout.
	defaultTimeout = 30 * time.Second

	// maxResponseBytes bounds the size of a Horizon response body.
	maxResponseBytes = 4 << 20

	// Circuit breaker tuning.
	breakerMinRequests  = 10
	breakerFailureRatio = 0.6
	breakerOpenTimeout  = 30 * time.Second
)

// Logger is the logging surface the client needs.
type Logger interface {
	Debug(format string, args ...any)
	Warn(format string, args ...any)
}

// ClientOptions contains optional configuration for the Horizon client.
type ClientOptions struct {
	// Network selects the passphrase and default URLs. Defaults to testnet.
	Network chain.Network

	// BaseURL overrides the Horizon URL of the network.
	BaseURL string

	// FriendbotURL overrides the Friendbot URL.
	FriendbotURL string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client

	// RateLimiter overrides the per-endpoint limiter built from
	// RequestsPerSecond and Burst.
	RateLimiter       *chain.RateLimiter
	RequestsPerSecond float64
	Burst             int

	// Retry overrides the default retry configuration.
	Retry *chain.RetryConfig

	// Clock sets transaction time bounds. Defaults to the system clock.
	Clock clock.Clock

	Logger Logger
}

// Client provides Stellar ledger operations over Horizon.
type Client struct {
	network      chain.Network
	baseURL      string
	friendbotURL string
	httpClient   *http.Client
	limiter      *chain.RateLimiter
	retry        chain.RetryConfig
	breaker      *gobreaker.CircuitBreaker
	clock        clock.Clock
	logger       Logger
}

var _ chain.Client = (*Client)(nil)

// NewClient creates a new Horizon client.
func NewClient(opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}

	c := &Client{
		network:      chain.Testnet,
		baseURL:      DefaultTestnetURL,
		friendbotURL: DefaultFriendbotURL,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		retry:        chain.DefaultRetryConfig(),
		clock:        clock.NewDefaultClock(),
		logger:       nopLogger{},
	}

	if opts.Network == chain.Public {
		c.network = chain.Public
		c.baseURL = DefaultPublicURL
	}
	if opts.BaseURL != "" {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.FriendbotURL != "" {
		c.friendbotURL = strings.TrimRight(opts.FriendbotURL, "/")
	}
	if opts.HTTPClient != nil {
		c.httpClient = opts.HTTPClient
	}
	if opts.Retry != nil {
		c.retry = *opts.Retry
	}
	if opts.Clock != nil {
		c.clock = opts.Clock
	}
	if opts.Logger != nil {
		c.logger = opts.Logger
	}

	c.limiter = opts.RateLimiter
	if c.limiter == nil {
		c.limiter = chain.NewRateLimiter(opts.RequestsPerSecond, opts.Burst)
	}
	c.breaker = c.newCircuitBreaker()

	return c
}

// Network returns the network the client talks to.
func (c *Client) Network() chain.Network {
	return c.network
}

// GenerateMnemonic returns a fresh 24 word recovery phrase.
func (c *Client) GenerateMnemonic() (string, error) {
	return GenerateMnemonic()
}

// KeypairFromMnemonic derives the account keypair of a recovery phrase.
func (c *Client) KeypairFromMnemonic(phrase string) (chain.Keypair, error) {
	return KeypairFromMnemonic(phrase)
}

// KeypairFromSecret derives the address of an encoded secret seed.
func (c *Client) KeypairFromSecret(secret string) (chain.Keypair, error) {
	return KeypairFromSecret(secret)
}

// IsValidPublicAddress checks an encoded address including its checksum.
func (c *Client) IsValidPublicAddress(address string) bool {
	return IsValidPublicAddress(address)
}

// newCircuitBreaker stops calling Horizon once most recent requests failed.
func (c *Client) newCircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "horizon",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > breakerMinRequests && failureRatio >= breakerFailureRatio
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				c.logger.Warn("horizon seems down, stop allowing requests")
			}
			if from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen {
				c.logger.Debug("checking horizon status")
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				c.logger.Debug("horizon seems ok, restart allowing requests")
			}
		},
	})
}

// response is a fully read Horizon reply.
type response struct {
	status int
	header http.Header
	body   []byte
}

// do sends the request built by newRequest through the rate limiter, the
// retry loop and the circuit breaker. Transport failures, 429 and 5xx are
// retried; any other status is returned to the caller to interpret.
func (c *Client) do(ctx context.Context, endpoint string, newRequest func() (*http.Request, error)) (resp *response, err error) {
	start := c.clock.Now()
	defer func() { metrics.Global.RecordHorizonCall(endpoint, c.clock.Now().Sub(start), err) }()

	resp, err = chain.RetryWithConfig(ctx, c.retry, func() (*response, error) {
		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			return nil, fmt.Errorf("%w: %w", caelerr.ErrNetworkError, err)
		}

		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.roundTrip(newRequest)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, fmt.Errorf("%w: %w", caelerr.ErrNetworkError, err)
			}
			return nil, err
		}
		r, _ := out.(*response)
		return r, nil
	})
	if err != nil {
		if errors.Is(err, caelerr.ErrNetworkError) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", caelerr.ErrNetworkError, err)
	}
	return resp, nil
}

func (c *Client) roundTrip(newRequest func() (*http.Request, error)) (*response, error) {
	req, err := newRequest()
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, chain.WrapRetryable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, chain.WrapRetryable(fmt.Errorf("reading response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if wait := chain.ParseRetryAfter(resp.Header.Get("Retry-After")); wait > 0 {
			c.logger.Debug("horizon rate limited, retry after %s", wait)
		}
		return nil, chain.ErrRateLimited
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, chain.WrapRetryable(fmt.Errorf("status %d", resp.StatusCode))
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// get issues a GET for url.
func (c *Client) get(ctx context.Context, endpoint, url string) (*response, error) {
	return c.do(ctx, endpoint, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
