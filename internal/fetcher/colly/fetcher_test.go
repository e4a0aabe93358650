package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/competitor-watch/internal/watch"
)

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>pricing page</body></html>"))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{UserAgent: "watch-test", Timeout: 5 * time.Second})
	resp, err := f.Fetch(context.Background(), watch.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(resp.Body), "pricing page")
	require.Positive(t, resp.Duration)
}

func TestFetchNon2xxReturnsResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	f := New(Config{Timeout: 5 * time.Second})
	resp, err := f.Fetch(context.Background(), watch.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFetchUserAgentHeader(t *testing.T) {
	t.Parallel()

	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{UserAgent: "competitor-watch/0.1", Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), watch.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, "competitor-watch/0.1", gotAgent)
}

func TestFetchTransportError(t *testing.T) {
	t.Parallel()

	f := New(Config{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), watch.FetchRequest{URL: "http://127.0.0.1:1/nope"})
	require.Error(t, err)
}
