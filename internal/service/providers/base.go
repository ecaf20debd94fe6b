package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"MarketRegime/pkg/cache"
	xhttp "MarketRegime/pkg/http"
	applogger "MarketRegime/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var (
	// ErrMalformedResponse marks a body that does not have the expected shape.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrEmptyPayload marks a well-formed body with no usable observations.
	ErrEmptyPayload = errors.New("empty provider payload")
	// ErrProviderError marks an error object embedded in a 2xx body.
	ErrProviderError = errors.New("provider reported an error")
)

// BaseOption configures Base.
type BaseOption func(*Base)

// Base is the shared transport for one upstream provider: throttling, circuit breaking and
// short-TTL response caching. Adapters add only request building and parsing.
type Base struct {
	name      string
	baseURL   string
	apiKey    string
	keyHeader string
	client    *xhttp.Client
	cache     cache.Service
	cacheTTL  time.Duration
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	logger    *applogger.Logger
}

// BreakerSettings mirrors the configurable gobreaker knobs.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	Interval            time.Duration
}

// NewBase builds the transport for the named provider.
func NewBase(name, baseURL string, client *xhttp.Client, opts ...BaseOption) *Base {
	b := &Base{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  applogger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.breaker == nil {
		b.breaker = newBreaker(name, BreakerSettings{})
	}
	return b
}

func newBreaker(name string, s BreakerSettings) *gobreaker.CircuitBreaker {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 3
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 60 * time.Second
	}
	st := gobreaker.Settings{
		Name:     name,
		Interval: s.Interval,
		Timeout:  s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: isProviderSuccess,
	}
	return gobreaker.NewCircuitBreaker(st)
}

// abandonedError marks a call cut short by the caller's context, e.g. a sibling
// source failed and the request was cancelled.
type abandonedError struct{ err error }

func (e *abandonedError) Error() string { return e.err.Error() }

func (e *abandonedError) Unwrap() error { return e.err }

// isProviderSuccess keeps abandoned calls out of the breaker's failure count.
func isProviderSuccess(err error) bool {
	var abandoned *abandonedError
	return err == nil || errors.As(err, &abandoned)
}

// Name is the provider name used in logs and metrics.
func (b *Base) Name() string { return b.name }

// Get fetches path under the base URL. check runs on fresh bodies before they are cached,
// so an error-shaped body is never served from cache.
func (b *Base) Get(ctx context.Context, path string, query url.Values, check func([]byte) error) ([]byte, error) {
	if b.baseURL == "" {
		return nil, fmt.Errorf("%s: base url not configured", b.name)
	}
	fullURL := b.baseURL + path
	key := cache.GenerateKeyWithParams("provider", b.name, cache.HashKey(fullURL+"?"+query.Encode()))

	if b.cache != nil {
		if body, err := b.cache.Get(ctx, key); err == nil {
			b.logger.Debug("provider cache hit", applogger.String("provider", b.name), applogger.String("path", path))
			return body, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			b.logger.Warn("provider cache get error", applogger.String("provider", b.name), applogger.Error(err))
		}
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit wait: %w", b.name, err)
		}
	}

	res, err := b.breaker.Execute(func() (interface{}, error) {
		body, err := b.client.GetBytes(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodGet,
			URL:     fullURL,
			Headers: b.headers(),
			Query:   query,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, &abandonedError{err: err}
			}
			return nil, err
		}
		if check != nil {
			if err := check(body); err != nil {
				return nil, err
			}
		}
		return body, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", b.name, path, err)
	}
	body := res.([]byte)

	if b.cache != nil && b.cacheTTL > 0 {
		if err := b.cache.Set(ctx, key, body, b.cacheTTL); err != nil {
			b.logger.Warn("provider cache set error", applogger.String("provider", b.name), applogger.Error(err))
		}
	}
	return body, nil
}

func (b *Base) headers() map[string]string {
	if b.apiKey == "" || b.keyHeader == "" {
		return nil
	}
	return map[string]string{b.keyHeader: b.apiKey}
}

// WithAPIKey sends key in the given header on every request.
func WithAPIKey(header, key string) BaseOption {
	return func(b *Base) {
		b.keyHeader = header
		b.apiKey = key
	}
}

// WithCache enables response caching.
func WithCache(c cache.Service, ttl time.Duration) BaseOption {
	return func(b *Base) {
		b.cache = c
		b.cacheTTL = ttl
	}
}

// WithRateLimit throttles outbound calls to rps with the given burst.
func WithRateLimit(rps float64, burst int) BaseOption {
	return func(b *Base) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker overrides the circuit breaker thresholds.
func WithBreaker(s BreakerSettings) BaseOption {
	return func(b *Base) {
		b.breaker = newBreaker(b.name, s)
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) BaseOption {
	return func(b *Base) {
		if l != nil {
			b.logger = l
		}
	}
}
