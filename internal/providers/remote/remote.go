package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tradeboard/internal/model"
	"tradeboard/internal/providers"
)

const (
	defaultTimeout         = 20 * time.Second
	defaultUserAgent       = "tradeboard/0.1"
	defaultAPIKeyHeader    = "Authorization"
	defaultRateLimitPerSec = 5
	defaultRateLimitBurst  = 1
	maxPayloadBytes        = 256 << 20
)

var ErrQuotaExceeded = errors.New("remote: quota exceeded")

type Config struct {
	URL             string
	JSONPath        string
	APIKey          string
	APIKeyHeader    string
	UserAgent       string
	Timeout         time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
}

type Provider struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("remote: dataset url is required")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid dataset url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("remote: unsupported url scheme %q", parsed.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = defaultAPIKeyHeader
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = defaultRateLimitPerSec
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}
	return &Provider{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
	}, nil
}

func (p *Provider) Name() string {
	return "remote:" + p.config.URL
}

func (p *Provider) FetchShipments(ctx context.Context) ([]model.Shipment, error) {
	body, err := p.doRequest(ctx)
	if err != nil {
		return nil, err
	}
	shipments, err := providers.DecodeShipments(body, p.config.JSONPath)
	if err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}
	return shipments, nil
}

func (p *Provider) doRequest(ctx context.Context) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}
	if strings.TrimSpace(p.config.APIKey) != "" {
		req.Header.Set(p.config.APIKeyHeader, p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrQuotaExceeded, strings.TrimSpace(string(body)))
	case resp.StatusCode == http.StatusNoContent:
		return nil, providers.ErrNoRecords
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, fmt.Errorf("remote: request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

var _ providers.Provider = (*Provider)(nil)
