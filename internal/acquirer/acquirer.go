// Package acquirer turns a URL into canonical, comparison-stable text plus a
// content fingerprint.
package acquirer

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/competitor-watch/internal/watch"
)

// DefaultTimeout bounds a single acquisition, matching the upstream fetch
// timeout.
const DefaultTimeout = 30 * time.Second

// Config controls acquisition behavior.
type Config struct {
	Timeout time.Duration
}

// Acquirer implements watch.Acquirer. It fetches a page statically, promotes
// to a headless render when the static HTML looks JavaScript-rendered (and a
// headless fetcher is configured), normalizes the HTML to canonical text and
// fingerprints it.
type Acquirer struct {
	static   watch.Fetcher
	headless watch.Fetcher
	detector *RenderDetector
	hasher   watch.Hasher
	cfg      Config
	logger   *zap.Logger
}

// New constructs an Acquirer. headless may be nil to disable promotion.
func New(
	static watch.Fetcher,
	headless watch.Fetcher,
	detector *RenderDetector,
	hasher watch.Hasher,
	cfg Config,
	logger *zap.Logger,
) *Acquirer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if detector == nil {
		detector = NewRenderDetector(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Acquirer{
		static:   static,
		headless: headless,
		detector: detector,
		hasher:   hasher,
		cfg:      cfg,
		logger:   logger,
	}
}

// Acquire fetches the URL and reduces it to canonical text. Failures are
// reported as *watch.AcquireError with the kind the caller needs to act on.
func (a *Acquirer) Acquire(ctx context.Context, rawURL string) (watch.Acquisition, error) {
	if err := ValidateURL(rawURL); err != nil {
		return watch.Acquisition{}, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	resp, err := a.static.Fetch(fetchCtx, watch.FetchRequest{URL: rawURL})
	if err != nil {
		return watch.Acquisition{}, classifyFetchError(rawURL, err)
	}

	if a.headless != nil && a.detector.ShouldRender(resp) {
		if rendered, err := a.headless.Fetch(fetchCtx, watch.FetchRequest{URL: rawURL, UseHeadless: true}); err != nil {
			a.logger.Warn("headless render failed, keeping static response",
				zap.String("url", rawURL),
				zap.Error(err),
			)
		} else {
			resp = rendered
		}
	}

	if resp.StatusCode >= 400 {
		return watch.Acquisition{}, &watch.AcquireError{
			Kind:       watch.AcquireHTTP,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
		}
	}

	text, err := Normalize(resp.Body)
	if err != nil {
		return watch.Acquisition{}, &watch.AcquireError{Kind: watch.AcquireNetwork, URL: rawURL, Err: err}
	}

	fingerprint, err := a.hasher.Hash([]byte(text))
	if err != nil {
		return watch.Acquisition{}, &watch.AcquireError{Kind: watch.AcquireNetwork, URL: rawURL, Err: err}
	}

	return watch.Acquisition{
		Text:         text,
		Fingerprint:  fingerprint,
		Length:       len(text),
		RawHTML:      resp.Body,
		StatusCode:   resp.StatusCode,
		UsedHeadless: resp.UsedHeadless,
		Duration:     resp.Duration,
	}, nil
}

// ValidateURL rejects anything that is not a well-formed http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &watch.AcquireError{Kind: watch.AcquireInvalidURL, URL: rawURL, Err: err}
	}
	return nil
}

func classifyFetchError(rawURL string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &watch.AcquireError{Kind: watch.AcquireTimeout, URL: rawURL, Err: err}
	}
	return &watch.AcquireError{Kind: watch.AcquireNetwork, URL: rawURL, Err: err}
}
