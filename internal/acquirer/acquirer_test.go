package acquirer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/competitor-watch/internal/hash/sha256"
	"github.com/JakeFAU/competitor-watch/internal/watch"
)

type fakeFetcher struct {
	resp  watch.FetchResponse
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ watch.FetchRequest) (watch.FetchResponse, error) {
	f.calls++
	return f.resp, f.err
}

func newAcquirer(static, headless watch.Fetcher) *Acquirer {
	return New(static, headless, NewRenderDetector(0), sha256.New(), Config{Timeout: time.Second}, nil)
}

func TestAcquire_Success(t *testing.T) {
	t.Parallel()

	static := &fakeFetcher{resp: watch.FetchResponse{
		StatusCode: 200,
		Body:       []byte("<html><body><main><p>Hello pricing $10</p></main></body></html>"),
	}}
	a := newAcquirer(static, nil)

	got, err := a.Acquire(context.Background(), "https://example.com/pricing")
	require.NoError(t, err)
	require.Equal(t, "Hello pricing $10", got.Text)
	require.Len(t, got.Fingerprint, 64)
	require.Equal(t, len(got.Text), got.Length)
}

func TestAcquire_FingerprintDeterministic(t *testing.T) {
	t.Parallel()

	static := &fakeFetcher{resp: watch.FetchResponse{
		StatusCode: 200,
		Body:       []byte("<html><body><p>same content</p></body></html>"),
	}}
	a := newAcquirer(static, nil)

	first, err := a.Acquire(context.Background(), "https://example.com")
	require.NoError(t, err)
	second, err := a.Acquire(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestAcquire_InvalidURL(t *testing.T) {
	t.Parallel()

	a := newAcquirer(&fakeFetcher{}, nil)
	for _, bad := range []string{"", "not a url", "ftp://example.com/file", "https://"} {
		_, err := a.Acquire(context.Background(), bad)
		ae, ok := watch.AsAcquireError(err)
		require.True(t, ok, "url %q", bad)
		require.Equal(t, watch.AcquireInvalidURL, ae.Kind)
	}
}

func TestAcquire_HTTPError(t *testing.T) {
	t.Parallel()

	static := &fakeFetcher{resp: watch.FetchResponse{StatusCode: 503, Body: []byte("down")}}
	a := newAcquirer(static, nil)

	_, err := a.Acquire(context.Background(), "https://example.com")
	ae, ok := watch.AsAcquireError(err)
	require.True(t, ok)
	require.Equal(t, watch.AcquireHTTP, ae.Kind)
	require.Equal(t, 503, ae.StatusCode)
}

func TestAcquire_TimeoutClassified(t *testing.T) {
	t.Parallel()

	static := &fakeFetcher{err: context.DeadlineExceeded}
	a := newAcquirer(static, nil)

	_, err := a.Acquire(context.Background(), "https://example.com")
	ae, ok := watch.AsAcquireError(err)
	require.True(t, ok)
	require.Equal(t, watch.AcquireTimeout, ae.Kind)
}

func TestAcquire_NetworkErrorClassified(t *testing.T) {
	t.Parallel()

	static := &fakeFetcher{err: errors.New("connection refused")}
	a := newAcquirer(static, nil)

	_, err := a.Acquire(context.Background(), "https://example.com")
	ae, ok := watch.AsAcquireError(err)
	require.True(t, ok)
	require.Equal(t, watch.AcquireNetwork, ae.Kind)
}

func TestAcquire_HeadlessPromotion(t *testing.T) {
	t.Parallel()

	static := &fakeFetcher{resp: watch.FetchResponse{
		StatusCode: 200,
		Body:       []byte(`<html><body><div id="root"></div></body></html>`),
	}}
	headless := &fakeFetcher{resp: watch.FetchResponse{
		StatusCode:   200,
		Body:         []byte("<html><body><p>rendered content</p></body></html>"),
		UsedHeadless: true,
	}}
	a := newAcquirer(static, headless)

	got, err := a.Acquire(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, 1, headless.calls)
	require.True(t, got.UsedHeadless)
	require.Equal(t, "rendered content", got.Text)
}

func TestAcquire_HeadlessFailureKeepsStatic(t *testing.T) {
	t.Parallel()

	static := &fakeFetcher{resp: watch.FetchResponse{
		StatusCode: 200,
		Body:       []byte(`<html><body><div id="root">static text</div></body></html>`),
	}}
	headless := &fakeFetcher{err: errors.New("browser crashed")}
	a := newAcquirer(static, headless)

	got, err := a.Acquire(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.False(t, got.UsedHeadless)
	require.Equal(t, "static text", got.Text)
}
