package webclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/riskibarqy/sports-trading/internal/platform/resilience"
	"github.com/riskibarqy/sports-trading/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	maxBodyBytes     = 8 << 20
)

// ErrTransient marks failures worth retrying and counting against the breaker.
var ErrTransient = crerr.New("transient page fetch failure")

type Config struct {
	Name           string
	HTTPClient     *http.Client
	Timeout        time.Duration
	MaxRetries     int
	UserAgent      string
	RateInterval   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client fetches HTML pages over plain HTTP with pacing, retries and a
// circuit breaker. Concurrent fetches of one URL share a single request.
type Client struct {
	name       string
	httpClient *http.Client
	maxRetries int
	userAgent  string
	limiter    *rate.Limiter
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	flight     resilience.SingleFlight[string]
	backoff    func(attempt int) time.Duration
}

func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "web"
	}

	var limiter *rate.Limiter
	if cfg.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RateInterval), 1)
	}

	return &Client{
		name:       name,
		httpClient: httpClient,
		maxRetries: max(cfg.MaxRetries, 0),
		userAgent:  userAgent,
		limiter:    limiter,
		logger:     logger,
		breaker:    resilience.NewCircuitBreaker(cfg.CircuitBreaker),
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

// Fetch returns the body of a successful GET of pageURL.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	body, err, _ := c.flight.Do(pageURL, func() (string, error) {
		var body string
		err := c.breaker.Do(func() error {
			var reqErr error
			body, reqErr = c.execute(ctx, pageURL)
			return reqErr
		}, func(err error) bool {
			return crerr.Is(err, ErrTransient)
		})
		return body, err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "page circuit breaker rejected request", "source", c.name, "state", c.breaker.State())
		return "", crerr.Mark(crerr.Wrapf(err, "%s is temporarily unavailable", c.name), usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return "", err
	}
	return body, nil
}

func (c *Client) execute(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", crerr.Wrap(err, "wait for rate limiter")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", crerr.Wrap(err, "build request")
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		var retryAfter time.Duration
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Mark(crerr.Wrap(err, "send request"), ErrTransient)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Mark(crerr.Wrap(readErr, "read response body"), ErrTransient)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return string(raw), nil
			case isRetryableStatus(resp.StatusCode):
				retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
				lastErr = crerr.Mark(crerr.Newf("status=%d", resp.StatusCode), ErrTransient)
			default:
				return "", crerr.Newf("%s returned status=%d for %s", c.name, resp.StatusCode, pageURL)
			}
		}

		if attempt == c.maxRetries || ctx.Err() != nil {
			break
		}
		wait := c.backoff(attempt)
		if retryAfter > wait {
			wait = retryAfter
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.Mark(crerr.New("page request failed"), ErrTransient)
	}
	c.logger.WarnContext(ctx, "page request failed", "source", c.name, "url", pageURL, "error", lastErr)
	return "", crerr.Wrapf(lastErr, "fetch %s", pageURL)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
