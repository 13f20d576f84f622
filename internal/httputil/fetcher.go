// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

const (
	defaultTimeout           = 60 * time.Second
	defaultRequestsPerSecond = 2
	defaultUserAgent         = "harvest-engine/0.1"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// Fetcher issues HTTP requests with one token bucket and one in-flight
// slot per host, so requests to the same site never overlap regardless of
// how many goroutines share the Fetcher.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	rps        float64
	maxRetries int

	mu    sync.Mutex
	hosts map[string]*hostGate
}

type hostGate struct {
	limiter *rate.Limiter
	slot    chan struct{}
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// NewFetcher builds a Fetcher from cfg. Zero values fall back to defaults;
// a negative RequestsPerSecond disables rate limiting.
func NewFetcher(cfg types.HTTPConfig, opts ...Option) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = defaultRequestsPerSecond
	}
	f := &Fetcher{
		client:     &http.Client{Timeout: timeout},
		userAgent:  ua,
		rps:        rps,
		maxRetries: cfg.MaxRetries,
		hosts:      make(map[string]*hostGate),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) gate(host string) *hostGate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.hosts[host]
	if !ok {
		limit := rate.Limit(f.rps)
		if f.rps < 0 {
			limit = rate.Inf
		}
		g = &hostGate{
			limiter: rate.NewLimiter(limit, 1),
			slot:    make(chan struct{}, 1),
		}
		f.hosts[host] = g
	}
	return g
}

// Do sends req after acquiring the host's slot and a rate-limit token. The
// slot is held until the returned body is closed. Non-2xx responses are
// closed and reported as *StatusError.
func (f *Fetcher) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	g := f.gate(req.URL.Host)
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	release := func() { <-g.slot }

	if err := g.limiter.Wait(ctx); err != nil {
		release()
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := DoWithRetry(ctx, f.client, req, f.maxRetries)
	if err != nil {
		release()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		release()
		return nil, &StatusError{URL: req.URL.String(), Code: resp.StatusCode}
	}
	resp.Body = &gatedBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

type gatedBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *gatedBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

// Get issues a GET request. The caller must close the response body.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return f.Do(ctx, req)
}

// PostForm issues a form-encoded POST. The caller must close the response body.
func (f *Fetcher) PostForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	body := form.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.Do(ctx, req)
}

// GetBytes fetches rawURL and returns the raw body.
func (f *Fetcher) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return data, nil
}

// GetText fetches rawURL and returns the body decoded to UTF-8.
func (f *Fetcher) GetText(ctx context.Context, rawURL string) (string, error) {
	resp, err := f.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return string(DecodeUTF8(data, resp.Header.Get("Content-Type"))), nil
}

// Stream copies the body of rawURL into w and returns the byte count.
func (f *Fetcher) Stream(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	resp, err := f.Get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("streaming %s: %w", rawURL, err)
	}
	return n, nil
}

// Document fetches rawURL and parses it as HTML.
func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return ParseDocument(data, resp.Header.Get("Content-Type"))
}

// ParseDocument decodes data using the declared or sniffed charset and
// parses it as HTML.
func ParseDocument(data []byte, contentType string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(DecodeUTF8(data, contentType)))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// DecodeUTF8 converts data to UTF-8. Undecodable input is returned as is.
func DecodeUTF8(data []byte, contentType string) []byte {
	enc, name, _ := charset.DetermineEncoding(data, contentType)
	if name == "utf-8" {
		return data
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return out
}
