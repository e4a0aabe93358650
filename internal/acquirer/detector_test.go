package acquirer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/competitor-watch/internal/watch"
)

func TestShouldRender_SPAMarker(t *testing.T) {
	t.Parallel()

	d := NewRenderDetector(0)
	body := `<html><body><div id="root"></div><script src="/bundle.js"></script></body></html>`
	require.True(t, d.ShouldRender(watch.FetchResponse{StatusCode: 200, Body: []byte(body)}))
}

func TestShouldRender_EmptyBody(t *testing.T) {
	t.Parallel()

	d := NewRenderDetector(0)
	require.True(t, d.ShouldRender(watch.FetchResponse{StatusCode: 200}))
}

func TestShouldRender_SmallScriptHeavyBody(t *testing.T) {
	t.Parallel()

	d := NewRenderDetector(0)
	body := `<html><body><p>hi</p><script>` + strings.Repeat("x", 500) + `</script></body></html>`
	require.True(t, d.ShouldRender(watch.FetchResponse{StatusCode: 200, Body: []byte(body)}))
}

func TestShouldRender_ContentfulPage(t *testing.T) {
	t.Parallel()

	d := NewRenderDetector(0)
	body := `<html><body><main>` + strings.Repeat("<p>real server rendered content</p>", 20) + `</main></body></html>`
	require.False(t, d.ShouldRender(watch.FetchResponse{StatusCode: 200, Body: []byte(body)}))
}

func TestShouldRender_NonOKStatus(t *testing.T) {
	t.Parallel()

	d := NewRenderDetector(0)
	require.False(t, d.ShouldRender(watch.FetchResponse{StatusCode: 404, Body: []byte(`<div id="root"></div>`)}))
}
