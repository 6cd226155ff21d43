// Package instagram provides the upstream client for the Instagram
// web_profile_info endpoint: one GET per lookup with a fixed browser-like
// header set, response decoding, and status classification.
package instagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/ig-profile-proxy/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "igproxy_upstream_requests_total",
		Help: "Total upstream requests by HTTP status (or network_error)",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "igproxy_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "igproxy_upstream_errors_total",
		Help: "Total upstream errors by kind",
	}, []string{"kind"})
)

const (
	// DefaultBaseURL is the upstream API host.
	DefaultBaseURL = "https://i.instagram.com"

	// ProfileInfoPath is the profile-info endpoint; the username goes in the query.
	ProfileInfoPath = "/api/v1/users/web_profile_info/"

	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 10 * time.Second

	// MaxBodySize caps the decoded response body.
	MaxBodySize = 8 << 20
)

// Fixed request headers. The upstream rejects requests without them.
const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"
	AppID          = "936619743392459"
	Accept         = "*/*"
	AcceptLanguage = "en-US,en;q=0.9"
	AcceptEncoding = "gzip, deflate, br"

	appIDHeader = "x-ig-app-id"
)

// Client is the upstream profile client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

var _ profile.Fetcher = (*Client)(nil)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the scheme and host of the upstream API
	BaseURL string

	// Timeout bounds each request, including reading the body
	Timeout time.Duration

	// Transport overrides the HTTP transport (for testing)
	Transport http.RoundTripper
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// New creates a new upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		baseURL: cfg.BaseURL,
		logger:  log.With().Str("component", "instagram-client").Logger(),
	}, nil
}

// ProfileURL returns the request URL for username.
func (c *Client) ProfileURL(username string) string {
	return c.baseURL + ProfileInfoPath + "?username=" + url.QueryEscape(username)
}

// FetchProfile performs exactly one GET for username and returns the user object.
//
// Classification:
//   - 404 -> profile.KindNotFound
//   - other non-2xx, transport failure -> profile.KindUpstreamUnavailable
//   - 2xx, undecodable body -> profile.KindMalformedResponse
//   - 2xx, no user object -> profile.KindNotFound
//   - 2xx, private user -> profile.KindPrivate
//
// If ctx ends while the request is in flight the request is aborted and the
// context error is returned.
func (c *Client) FetchProfile(ctx context.Context, username string) (*profile.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ProfileURL(username), nil)
	if err != nil {
		return nil, profile.NewError(profile.KindInternal, username, 0, fmt.Errorf("create request: %w", err))
	}
	setHeaders(req)

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("username", username).
		Msg("Executing upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		upstreamRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, c.fail(profile.NewError(profile.KindUpstreamUnavailable, username, 0, err))
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, c.fail(profile.NewError(profile.KindNotFound, username, resp.StatusCode, nil))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, c.fail(profile.NewError(profile.KindUpstreamUnavailable, username, resp.StatusCode, nil))
	}

	body, err := readBody(resp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		kind := profile.KindMalformedResponse
		if !errors.Is(err, errBadEncoding) {
			kind = profile.KindUpstreamUnavailable
		}
		return nil, c.fail(profile.NewError(kind, username, resp.StatusCode, err))
	}

	user, err := profile.DecodeUser(username, body)
	if err != nil {
		var pe *profile.Error
		if errors.As(err, &pe) {
			pe.StatusCode = resp.StatusCode
		}
		return nil, c.fail(err)
	}

	c.logger.Debug().
		Str("username", username).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("Upstream profile received")

	return user, nil
}

// fail records metrics and logs a classified failure.
func (c *Client) fail(err error) error {
	kind := profile.KindOf(err)
	upstreamErrorsTotal.WithLabelValues(string(kind)).Inc()

	var pe *profile.Error
	if errors.As(err, &pe) {
		c.logger.Warn().
			Str("username", pe.Username).
			Int("status", pe.StatusCode).
			Str("error_kind", string(kind)).
			Msg("Upstream request failed")
	}
	return err
}

// setHeaders applies the fixed header set. The app id header keeps its
// lowercase spelling on the wire.
func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header[appIDHeader] = []string{AppID}
	req.Header.Set("Accept", Accept)
	req.Header.Set("Accept-Language", AcceptLanguage)
	req.Header.Set("Accept-Encoding", AcceptEncoding)
}

// readBody reads and decodes the response body up to MaxBodySize.
// Failures caused by the encoded content wrap errBadEncoding; failures of
// the underlying connection do not.
func readBody(resp *http.Response) ([]byte, error) {
	raw := &trackingReader{r: resp.Body}

	reader, err := decodeBody(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		if raw.err != nil {
			return nil, fmt.Errorf("read response body: %w", raw.err)
		}
		return nil, err
	}
	defer reader.Close()

	body, err := io.ReadAll(io.LimitReader(reader, MaxBodySize+1))
	if err != nil {
		if raw.err == nil {
			return nil, fmt.Errorf("%w: %v", errBadEncoding, err)
		}
		return nil, fmt.Errorf("read response body: %w", raw.err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", errBadEncoding, MaxBodySize)
	}
	return body, nil
}
