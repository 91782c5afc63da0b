package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"go.uber.org/zap"

	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape/types"
)

var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

const defaultMaxBody = 8 << 20

type Config struct {
	Timeout       time.Duration
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
	UserAgents    []string
	MaxBodyBytes  int64
}

// Client is the net/http Transport. It keeps cookies across requests, sends
// browser-like headers and routes through the configured proxy.
type Client struct {
	hc      *http.Client
	uas     []string
	maxBody int64
	log     *zap.Logger
}

var _ types.Transport = (*Client)(nil)

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = DefaultUserAgents
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		pu, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("proxy url: %w", err)
		}
		if cfg.ProxyUsername != "" {
			pu.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
		}
		tr.Proxy = http.ProxyURL(pu)
		logger.Info("using proxy", zap.String("host", pu.Host))
	}

	return &Client{
		hc:      &http.Client{Timeout: cfg.Timeout, Jar: jar, Transport: tr},
		uas:     cfg.UserAgents,
		maxBody: cfg.MaxBodyBytes,
		log:     logger.Named("transport"),
	}, nil
}

// Get sends one request. params are merged into rawURL's query. Only failures
// to complete the exchange are errors; any HTTP status is a Response.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (types.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return types.Response{}, apperrors.Transport("bad url", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return types.Response{}, apperrors.Transport("build request", err)
	}
	c.setHeaders(req)

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		return types.Response{}, apperrors.Transport(describe(err), err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, c.maxBody))
	if err != nil {
		return types.Response{}, apperrors.Transport("read body: "+describe(err), err)
	}

	c.log.Debug("GET",
		zap.String("url", u.String()),
		zap.Int("status", res.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)),
	)
	return types.Response{Status: res.StatusCode, Body: body}, nil
}

// Accept-Encoding is left to net/http so gzip is decoded transparently.
func (c *Client) setHeaders(req *http.Request) {
	h := req.Header
	h.Set("User-Agent", c.uas[rand.IntN(len(c.uas))])
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Upgrade-Insecure-Requests", "1")
}

func describe(err error) string {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return "request failed"
}
