// Package resilience wraps an httpcache.Client with retry and circuit
// breaker policies from failsafe-go, so transient origin failures and
// degraded origins don't propagate straight through the cache.
package resilience

import (
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/go-httpcache/httpcache"
)

// Config holds the resilience policies to apply. Both are optional; a nil
// policy is simply not included in the execution chain.
type Config struct {
	// RetryPolicy configures retry behavior. If nil, retry is disabled.
	RetryPolicy retrypolicy.RetryPolicy[*http.Response]

	// CircuitBreaker configures circuit breaking. If nil, it is disabled.
	CircuitBreaker circuitbreaker.CircuitBreaker[*http.Response]
}

// RetryPolicyBuilder returns a retry policy builder preconfigured to retry
// on network errors and 5xx responses, with exponential backoff from 100ms
// to 10s, capped at 3 retries (4 attempts in all). Callers can further
// customize before Build().
func RetryPolicyBuilder() retrypolicy.Builder[*http.Response] {
	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(r *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 10*time.Second)
}

// CircuitBreakerBuilder returns a circuit breaker builder preconfigured to
// open on network errors or 5xx responses after 5 consecutive failures,
// closing again after 2 consecutive successes in the half-open state, with
// a 60s delay before probing. Callers can further customize before Build().
func CircuitBreakerBuilder() circuitbreaker.Builder[*http.Response] {
	return circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(r *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

// Client wraps another Client (typically *http.Client) with the configured
// resilience policies. It implements httpcache.Client, so it can be passed
// to httpcache.WithClient to sit between the cache's decision engine and
// the origin.
type Client struct {
	underlying httpcache.Client
	policies   []failsafe.Policy[*http.Response]
}

// New wraps underlying with the policies in config. If neither policy is
// set, Do simply delegates to underlying without going through failsafe.
func New(underlying httpcache.Client, config Config) *Client {
	var policies []failsafe.Policy[*http.Response]
	if config.RetryPolicy != nil {
		policies = append(policies, config.RetryPolicy)
	}
	if config.CircuitBreaker != nil {
		policies = append(policies, config.CircuitBreaker)
	}
	return &Client{underlying: underlying, policies: policies}
}

// Do executes req against the underlying client, applying the configured
// retry and circuit breaker policies around the call.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if len(c.policies) == 0 {
		return c.underlying.Do(req)
	}
	return failsafe.With(c.policies...).Get(func() (*http.Response, error) {
		return c.underlying.Do(req)
	})
}

var _ httpcache.Client = (*Client)(nil)
