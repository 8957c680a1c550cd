// Package geo resolves a caller's country from their IP address.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mbolis/santas-scanner/log"
)

// Unknown is returned whenever the country cannot be determined.
const Unknown = "XX"

// Lookup is satisfied by Client. Implementations never fail: they degrade
// to Unknown.
type Lookup interface {
	LookupCountry(ctx context.Context, ip string) string
}

// Cache stores country codes of previously resolved IPs. A failing cache
// behaves like an empty one.
type Cache interface {
	Get(ctx context.Context, ip string) (code string, ok bool)
	Set(ctx context.Context, ip, code string)
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
}

type Option func(*Client)

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient queries an ip-api.com compatible service at baseURL, e.g.
// "http://ip-api.com/json/". Every lookup is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type lookupResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
}

func (c *Client) LookupCountry(ctx context.Context, ip string) string {
	if ip == "" {
		return Unknown
	}

	if c.cache != nil {
		if code, ok := c.cache.Get(ctx, ip); ok {
			return code
		}
	}

	code, err := c.fetch(ctx, ip)
	if err != nil {
		log.Debugf("geo.lookup %s: %s", ip, err)
		return Unknown
	}

	if c.cache != nil {
		c.cache.Set(ctx, ip, code)
	}
	return code
}

func (c *Client) fetch(ctx context.Context, ip string) (string, error) {
	endpoint := c.baseURL + url.PathEscape(ip) + "?fields=status,countryCode"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if body.Status != "success" {
		return "", fmt.Errorf("lookup status %q", body.Status)
	}
	if !validCode(body.CountryCode) {
		return "", fmt.Errorf("malformed country code %q", body.CountryCode)
	}
	return body.CountryCode, nil
}

func validCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
