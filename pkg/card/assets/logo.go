package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultLogoTimeout = 5 * time.Second
	maxLogoBytes       = 8 << 20
	// failureBackoff keeps a batch from waiting on an unreachable logo
	// once per card.
	failureBackoff = 30 * time.Second
)

// ErrLogoUnavailable wraps every failure to obtain the logo.
var ErrLogoUnavailable = errors.New("assets: logo unavailable")

// LogoFetcher loads the header logo from an http(s) URL or a local file and
// keeps the decoded image in an expirable LRU.
type LogoFetcher struct {
	location string
	client   *http.Client
	timeout  time.Duration
	cache    *expirable.LRU[string, image.Image]
	observe  func(hit bool)

	mu          sync.Mutex
	lastFailure time.Time
	lastErr     error
	now         func() time.Time
}

// LogoOption configures a LogoFetcher.
type LogoOption func(*LogoFetcher)

// WithHTTPClient overrides the client used for remote logos.
func WithHTTPClient(client *http.Client) LogoOption {
	return func(f *LogoFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout bounds a single logo fetch.
func WithTimeout(timeout time.Duration) LogoOption {
	return func(f *LogoFetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithCache sets the LRU size and entry lifetime.
func WithCache(size int, ttl time.Duration) LogoOption {
	return func(f *LogoFetcher) {
		if size > 0 {
			f.cache = expirable.NewLRU[string, image.Image](size, nil, ttl)
		}
	}
}

// WithCacheObserver is called on every lookup with whether it hit.
func WithCacheObserver(observe func(hit bool)) LogoOption {
	return func(f *LogoFetcher) {
		f.observe = observe
	}
}

// NewLogoFetcher builds a fetcher for location.
func NewLogoFetcher(location string, opts ...LogoOption) *LogoFetcher {
	f := &LogoFetcher{
		location: strings.TrimSpace(location),
		client:   http.DefaultClient,
		timeout:  defaultLogoTimeout,
		cache:    expirable.NewLRU[string, image.Image](4, nil, time.Hour),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Logo returns the decoded logo, fetching it on a cache miss.
func (f *LogoFetcher) Logo(ctx context.Context) (image.Image, error) {
	if f.location == "" {
		return nil, fmt.Errorf("%w: no location configured", ErrLogoUnavailable)
	}
	if img, ok := f.cache.Get(f.location); ok {
		f.report(true)
		return img, nil
	}
	f.report(false)

	if err := f.recentFailure(); err != nil {
		return nil, err
	}

	data, err := f.load(ctx)
	if err == nil {
		var img image.Image
		img, err = DecodeImage(data)
		if err == nil {
			f.cache.Add(f.location, img)
			return img, nil
		}
	}

	// a caller giving up says nothing about the logo itself
	if ctx.Err() == nil {
		f.mu.Lock()
		f.lastFailure = f.now()
		f.lastErr = err
		f.mu.Unlock()
	}
	return nil, fmt.Errorf("%w: %v", ErrLogoUnavailable, err)
}

// Purge drops the cached logo.
func (f *LogoFetcher) Purge() {
	f.cache.Purge()
	f.mu.Lock()
	f.lastFailure = time.Time{}
	f.lastErr = nil
	f.mu.Unlock()
}

func (f *LogoFetcher) recentFailure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastErr != nil && f.now().Sub(f.lastFailure) < failureBackoff {
		return fmt.Errorf("%w: %v", ErrLogoUnavailable, f.lastErr)
	}
	return nil
}

func (f *LogoFetcher) load(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(f.location, "http://") && !strings.HasPrefix(f.location, "https://") {
		return os.ReadFile(f.location)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes))
}

func (f *LogoFetcher) report(hit bool) {
	if f.observe != nil {
		f.observe(hit)
	}
}
