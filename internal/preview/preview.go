// Package preview scrapes title, description and image metadata for link boxes.
package preview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultCacheTTL     = 10 * time.Minute
	DefaultMaxBodyBytes = 2 << 20
	defaultCacheSize    = 512
	userAgent           = "Mozilla/5.0 (compatible; boxgrid-preview/1.0)"
)

// Options configures a Fetcher.
type Options struct {
	Timeout      time.Duration
	CacheTTL     time.Duration
	MaxBodyBytes int64
	// AllowPrivate permits loopback and private network targets.
	AllowPrivate bool
	Logger       *slog.Logger
}

// Fetcher retrieves and extracts link previews. Concurrent requests for the
// same URL share one fetch and results are cached for CacheTTL.
type Fetcher struct {
	client       *http.Client
	maxBodyBytes int64
	allowPrivate bool
	cache        *resultCache
	group        singleflight.Group
	logger       *slog.Logger
	now          func() time.Time
}

// NewFetcher builds a Fetcher.
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	dialer := &net.Dialer{Timeout: opts.Timeout}
	if !opts.AllowPrivate {
		dialer.Control = dialControl
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil

	return &Fetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after %d redirects", len(via))
				}
				_, err := validateURL(req.URL.String(), opts.AllowPrivate)
				return err
			},
		},
		maxBodyBytes: opts.MaxBodyBytes,
		allowPrivate: opts.AllowPrivate,
		cache:        newResultCache(opts.CacheTTL, defaultCacheSize),
		logger:       opts.Logger.With("component", "preview"),
		now:          time.Now,
	}
}

// Fetch returns the preview for rawURL. It is best effort: any failure yields
// an empty Result, and failures are not cached.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	if rawURL == "" {
		return Result{}
	}
	if cached, ok := f.cache.get(rawURL, f.now()); ok {
		return cached
	}
	value, err, _ := f.group.Do(rawURL, func() (any, error) {
		result, err := f.fetch(context.WithoutCancel(ctx), rawURL)
		if err != nil {
			return Result{}, err
		}
		f.cache.put(rawURL, result, f.now())
		return result, nil
	})
	if err != nil {
		f.logger.Debug("preview fetch failed", "url", rawURL, "error", err)
		return Result{}
	}
	return value.(Result)
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (Result, error) {
	target, err := validateURL(rawURL, f.allowPrivate)
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Result{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return Result{}, fmt.Errorf("decode charset: %w", err)
	}
	doc, err := html.Parse(body)
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}
	// Relative references resolve against the final URL after redirects.
	return Extract(doc, resp.Request.URL), nil
}
